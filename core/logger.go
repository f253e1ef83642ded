package core

// Logger is implemented by the logging services.
// expected args: error, map[string]interface{}, Person (at most one Person is reported).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Person identifies the authenticated user attached to a log entry.
type Person struct {
	ID    string
	Name  string
	Email string
}
