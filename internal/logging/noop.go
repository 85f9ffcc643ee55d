package logging

// NoOpLogger discards all logs; used in tests.
type NoOpLogger struct{}

func NewNoOpLogger() Logger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) Debug(msg string, fields ...interface{}) {}
func (n *NoOpLogger) Info(msg string, fields ...interface{})  {}
func (n *NoOpLogger) Warn(msg string, fields ...interface{})  {}
func (n *NoOpLogger) Error(msg string, fields ...interface{}) {}

func (n *NoOpLogger) WithComponent(component string) Logger {
	return n
}
