package apis

const (
	// Banner is served at the HTTP root so clients can tell the bridge is up.
	Banner = "edabridge"

	// Path parameters
	Mode    = "mode"
	Setting = "setting"
	Value   = "value"
)
