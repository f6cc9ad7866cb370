package delivery

// StatusClass groups the HTTP status codes the collector is known to answer with.
type StatusClass int

const (
	ClassUnknown StatusClass = iota
	ClassSuccess
	ClassClientFault
	ClassServerFault
)

func (c StatusClass) String() string {
	switch c {
	case ClassSuccess:
		return "success"
	case ClassClientFault:
		return "client_fault"
	case ClassServerFault:
		return "server_fault"
	default:
		return "unknown"
	}
}

type knownStatus struct {
	class StatusClass
	text  string
}

var knownStatuses = map[int]knownStatus{
	200: {ClassSuccess, "request succeeded"},
	201: {ClassSuccess, "reading created"},
	202: {ClassSuccess, "accepted for processing"},
	204: {ClassSuccess, "succeeded without content"},

	400: {ClassClientFault, "collector rejected the payload"},
	401: {ClassClientFault, "missing or wrong API key"},
	403: {ClassClientFault, "API key not allowed for this resource"},
	404: {ClassClientFault, "endpoint does not exist"},
	405: {ClassClientFault, "endpoint does not accept POST"},

	500: {ClassServerFault, "collector internal error"},
	502: {ClassServerFault, "bad gateway"},
	503: {ClassServerFault, "collector unavailable"},
	504: {ClassServerFault, "gateway timeout"},
}

// Classify returns the class of an HTTP status code; codes outside the table are
// ClassUnknown.
func Classify(status int) StatusClass {
	return knownStatuses[status].class
}

// StatusText describes a known status code, or returns "" for unknown ones.
func StatusText(status int) string {
	return knownStatuses[status].text
}
