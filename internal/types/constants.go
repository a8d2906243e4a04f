package types

const ContextUserKey = "user"

// DefaultCurrency is the fixed settlement currency for quotes and payments.
const DefaultCurrency = "EUR"

// AllowedCADExtensions is the allow-set for uploaded CAD files, matched
// against the lower-cased segment after the last '.' of the filename.
var AllowedCADExtensions = map[string]struct{}{
	"dxf":  {},
	"dwg":  {},
	"step": {},
	"stp":  {},
	"iges": {},
	"igs":  {},
	"stl":  {},
	"zip":  {},
}
