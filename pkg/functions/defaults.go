package functions

// registerDefaults installs the default builtin set described in spec.md
// §4.B, organized by category the way the teacher's pkg/ext subpackages
// organize JSONata's extension functions (extstring, extnumeric, extarray,
// extobject, extdatetime, extcrypto).
func registerDefaults(r *Registry) {
	registerStringFunctions(r)
	registerArrayFunctions(r)
	registerObjectFunctions(r)
	registerMathFunctions(r)
	registerDateFunctions(r)
	registerJSONFunctions(r)
	registerCryptoFunctions(r)
	registerConditionalFunctions(r)
	registerUtilityFunctions(r)
}
