package constants

// Route constants shared by the server and its clients
const (
	APIRoute   = "/api"
	APIV1Route = APIRoute + "/v1"
	DocsRoute  = "/docs/api/"

	// ExportsRoute serves exports stored on local disk
	ExportsRoute = "/exports"
	// Export path without leading slash, relative to the working directory
	ExportsPath = "uploads/exports"
)
