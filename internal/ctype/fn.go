package ctype

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

// FuncInfo is a declared function signature.
type FuncInfo struct {
	Name     string
	Params   []TypeID
	Variadic bool
	Result   TypeID
}

// DeclareFunc registers a function signature under its name.
func (r *Registry) DeclareFunc(info FuncInfo) error {
	if _, exists := r.functions[info.Name]; exists {
		return fmt.Errorf("%w '%s'", ErrFnRedefined, info.Name)
	}
	slot, err := safecast.Conv[uint32](len(r.funcs))
	if err != nil {
		panic(fmt.Errorf("len(funcs) overflow: %w", err))
	}
	info.Params = slices.Clone(info.Params)
	r.funcs = append(r.funcs, info)
	r.functions[info.Name] = slot
	return nil
}

// FuncType returns a fresh function TypeID for a declared name.
func (r *Registry) FuncType(name string) (TypeID, bool) {
	slot, ok := r.functions[name]
	if !ok {
		return NoTypeID, false
	}
	return r.Intern(Type{Kind: KindFunc, Payload: slot}), true
}

// LookupFunc returns the signature declared under name.
func (r *Registry) LookupFunc(name string) (*FuncInfo, bool) {
	slot, ok := r.functions[name]
	if !ok {
		return nil, false
	}
	return &r.funcs[slot], true
}

// FuncInfo returns the signature behind a function TypeID.
func (r *Registry) FuncInfo(id TypeID) (*FuncInfo, bool) {
	t, ok := r.Lookup(id)
	if !ok || t.Kind != KindFunc || t.Payload == 0 || int(t.Payload) >= len(r.funcs) {
		return nil, false
	}
	return &r.funcs[t.Payload], true
}

// Functions returns declared function names in lexical order.
func (r *Registry) Functions() []string {
	return sortedKeys(r.functions)
}
