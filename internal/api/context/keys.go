package context

type Key string

const (
	SessionID     Key = "session_id"
	SessionIssued Key = "session_issued"
	Workflow      Key = "workflow"
	Params        Key = "params"
)
