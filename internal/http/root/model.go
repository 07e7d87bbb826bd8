package root

// Data is the fixed application descriptor served at every mount point.
type Data struct {
	AppName string `json:"appName" doc:"Application name" example:"Demo WebApp"`
	Message string `json:"message" doc:"Greeting message" example:"using NodeJs and Express!"`
}

// Info is the payload returned by every request. It never changes.
var Info = Data{
	AppName: "Demo WebApp",
	Message: "using NodeJs and Express!",
}

// GetOutput is the response wrapper for the root endpoint.
type GetOutput struct {
	Body Data
}
