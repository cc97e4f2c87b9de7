package image

// Target is the live-memory collaborator a Memory image reads through.
// It models a debugger/programmer connection's one required operation:
// read length bytes starting at address. Implementations should return
// an error for any failure; the Memory image surfaces it to the caller
// as KindUnavailable.
type Target interface {
	ReadBuffer(address uint32, length uint32) ([]byte, error)
}

// Logger is the log-sink collaborator. Lines are for humans, not parsed
// by anything in this package.
type Logger interface {
	Debugf(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// nopLogger discards everything; it is the default when Open is not
// given a Logger.
type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{})   {}
func (nopLogger) Warningf(string, ...interface{}) {}
func (nopLogger) Errorf(string, ...interface{})   {}

// ShutdownFunc reports whether a cooperative shutdown has been
// requested. CalculateChecksum polls it between chunked CRC runs.
type ShutdownFunc func() bool

// KeepAliveFunc is called once per CRC chunk to let the host service its
// event loop (e.g. answer pings) during a long checksum.
type KeepAliveFunc func()
