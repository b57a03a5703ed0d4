package validator

import "regexp"

// IdentifierDenylist is the fixed set of globals that would expose the host
// runtime: interpreter keywords, ambient browser/Node objects, timers,
// module loaders, and coercion constructors (spec.md §6).
var IdentifierDenylist = map[string]bool{
	"eval": true, "Function": true, "constructor": true, "prototype": true,
	"__proto__": true, "window": true, "document": true, "global": true,
	"globalThis": true, "self": true, "parent": true, "top": true,
	"frames": true, "process": true, "require": true, "module": true,
	"exports": true, "__dirname": true, "__filename": true, "Buffer": true,
	"setImmediate": true, "clearImmediate": true, "setInterval": true,
	"clearInterval": true, "alert": true, "confirm": true, "prompt": true,
	"console": true, "fetch": true, "XMLHttpRequest": true, "localStorage": true,
	"sessionStorage": true, "indexedDB": true, "location": true, "history": true,
	"navigator": true, "setTimeout": true, "clearTimeout": true, "Worker": true,
	"SharedWorker": true, "ServiceWorker": true, "importScripts": true,
	"import": true, "WebAssembly": true, "WebSocket": true, "EventSource": true,
	"FileReader": true, "Blob": true, "URL": true, "URLSearchParams": true,
	"postMessage": true, "MessageChannel": true, "BroadcastChannel": true,
	"Error": true, "SyntaxError": true, "ReferenceError": true, "TypeError": true,
}

// PropertyDenylist is the fixed set of property names that would allow
// prototype-chain walking or rebinding (spec.md §6).
var PropertyDenylist = map[string]bool{
	"constructor": true, "prototype": true, "__proto__": true,
	"__defineGetter__": true, "__defineSetter__": true, "__lookupGetter__": true,
	"__lookupSetter__": true, "valueOf": true, "toString": true,
	"hasOwnProperty": true, "isPrototypeOf": true, "propertyIsEnumerable": true,
	"__defineProperty__": true, "__getOwnPropertyDescriptor__": true,
	"__getPrototypeOf__": true, "__setPrototypeOf__": true,
	"apply": true, "call": true, "bind": true,
}

// DangerousLiteralPatterns are the fixed regexes scanned against string
// literal text (spec.md §6).
var DangerousLiteralPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)data:text/html`),
	regexp.MustCompile(`(?i)data:application/javascript`),
	regexp.MustCompile(`(?i)vbscript:`),
	regexp.MustCompile(`(?i)<script`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
	regexp.MustCompile(`eval\(`),
	regexp.MustCompile(`Function\(`),
	regexp.MustCompile(`setTimeout\(`),
	regexp.MustCompile(`setInterval\(`),
}

// CallbackMethods is the set of array higher-order methods the validator
// permits without a registry entry, provided their first argument is an
// Arrow (spec.md §4.E rule 5).
var CallbackMethods = map[string]bool{
	"filter": true, "map": true, "find": true, "some": true, "every": true, "reduce": true,
}

// StaticNamespaces mirrors parser.StaticNamespaces; duplicated here rather
// than imported so that pkg/validator has no dependency on pkg/parser
// (validator operates purely on the node tree, not on parse-time metadata).
var StaticNamespaces = map[string]bool{
	"Object": true, "Math": true, "JSON": true, "Date": true,
	"Array": true, "Crypto": true, "String": true, "Number": true,
}
