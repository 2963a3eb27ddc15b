package token

var keywords = map[string]Kind{
	"typedef":  KwTypedef,
	"struct":   KwStruct,
	"union":    KwUnion,
	"const":    KwConst,
	"signed":   KwSigned,
	"unsigned": KwUnsigned,
	"bool":     KwBool,
	"_Bool":    KwBool,
	"void":     KwVoid,
	"char":     KwChar,
	"short":    KwShort,
	"int":      KwInt,
	"long":     KwLong,
	"float":    KwFloat,
	"double":   KwDouble,
	"int8_t":   KwInt8,
	"int16_t":  KwInt16,
	"int32_t":  KwInt32,
	"int64_t":  KwInt64,
	"uint8_t":  KwUint8,
	"uint16_t": KwUint16,
	"uint32_t": KwUint32,
	"uint64_t": KwUint64,
	"size_t":   KwSizeT,
}

// LookupKeyword возвращает тип и bool если это ключевое слово.
// Ключевые слова регистрозависимые, как в C.
func LookupKeyword(ident string) (Kind, bool) {
	k, ok := keywords[ident]
	return k, ok
}
