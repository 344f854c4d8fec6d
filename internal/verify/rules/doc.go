// Package rules registers the bracket regression rules.
//
// Import it for its side effects:
//
//	import _ "github.com/yuki-inaho/openscad-cadquery-sandbox/internal/verify/rules"
package rules
