package ctype

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

// Field is a single record member. An empty Name marks an anonymous
// nested record whose members are visible through the parent.
type Field struct {
	Name   string
	Type   TypeID
	Offset int
}

// RecordInfo stores metadata for a struct or union slot.
type RecordInfo struct {
	Name      string
	Union     bool
	Anonymous bool
	Complete  bool
	Fields    []Field
	Size      int
	Align     int
	// Rep is the index of the largest union member, -1 when there is none.
	Rep int
}

// DeclareRecord reserves a named record slot so that its own body can refer
// to it through pointers. Redeclaring an existing tag fails.
func (r *Registry) DeclareRecord(name string, union bool) (TypeID, error) {
	if _, exists := r.tags[name]; exists {
		return NoTypeID, fmt.Errorf("%w '%s'", ErrRedefinition, name)
	}
	id := r.newRecord(RecordInfo{Name: name, Union: union, Rep: -1})
	r.tags[name] = id
	return id, nil
}

// NewAnonymousRecord allocates a record owned by its enclosing declaration.
func (r *Registry) NewAnonymousRecord(union bool) TypeID {
	return r.newRecord(RecordInfo{Union: union, Anonymous: true, Rep: -1})
}

func (r *Registry) newRecord(info RecordInfo) TypeID {
	slot, err := safecast.Conv[uint32](len(r.records))
	if err != nil {
		panic(fmt.Errorf("len(records) overflow: %w", err))
	}
	r.records = append(r.records, info)
	return r.Intern(Type{Kind: KindRecord, Payload: slot})
}

// ForgetRecord drops an incomplete named record, used when its body failed
// to parse so that the tag can be declared again.
func (r *Registry) ForgetRecord(id TypeID) {
	info := r.recordInfo(id)
	if info == nil || info.Complete || info.Anonymous {
		return
	}
	if r.tags[info.Name] == id {
		delete(r.tags, info.Name)
	}
}

// CompleteRecord stores the members and the computed layout exactly once.
func (r *Registry) CompleteRecord(id TypeID, fields []Field, size, align, rep int) {
	info := r.recordInfo(id)
	if info == nil || info.Complete {
		return
	}
	info.Fields = slices.Clone(fields)
	info.Size = size
	info.Align = align
	info.Rep = rep
	info.Complete = true
}

// LookupTag resolves a struct/union tag.
func (r *Registry) LookupTag(name string) (TypeID, bool) {
	id, ok := r.tags[name]
	return id, ok
}

// RequireTag resolves a tag or reports it as undeclared.
func (r *Registry) RequireTag(name string) (TypeID, error) {
	if id, ok := r.tags[name]; ok {
		return id, nil
	}
	return NoTypeID, fmt.Errorf("%w '%s'", ErrUndeclared, name)
}

// Tags returns record tags in lexical order.
func (r *Registry) Tags() []string {
	return sortedKeys(r.tags)
}

// RecordInfo returns metadata for a record TypeID (const variants included).
func (r *Registry) RecordInfo(id TypeID) (*RecordInfo, bool) {
	info := r.recordInfo(id)
	return info, info != nil
}

func (r *Registry) recordInfo(id TypeID) *RecordInfo {
	t, ok := r.Lookup(id)
	if !ok || t.Kind != KindRecord {
		return nil
	}
	if t.Payload == 0 || int(t.Payload) >= len(r.records) {
		return nil
	}
	return &r.records[t.Payload]
}

// FindField resolves a member by name, descending into anonymous members.
// The returned offset is relative to the start of the record.
func (r *Registry) FindField(id TypeID, name string) (Field, int, bool) {
	info := r.recordInfo(id)
	if info == nil {
		return Field{}, 0, false
	}
	for _, f := range info.Fields {
		if f.Name != "" {
			if f.Name == name {
				return f, f.Offset, true
			}
			continue
		}
		if inner, off, ok := r.FindField(f.Type, name); ok {
			return inner, f.Offset + off, true
		}
	}
	return Field{}, 0, false
}

// DirectField resolves a member declared directly in the record.
func (r *Registry) DirectField(id TypeID, name string) (Field, bool) {
	info := r.recordInfo(id)
	if info == nil {
		return Field{}, false
	}
	for _, f := range info.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
