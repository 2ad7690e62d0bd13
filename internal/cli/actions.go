package cli

// Indirection layer to allow stubbing in tests

var (
	fnServe  = runServe
	fnProbe  = runProbe
	fnStatus = runStatus
	fnModels = runModels
)
