package ftpd

// FTP reply codes used by the command handlers. Naming mirrors RFC 959
// status names rather than numbers so the handler code stays readable.
const (
	StatusServiceReady             = 220
	StatusClosingControlConn       = 221
	StatusUserLoggedIn             = 230
	StatusFileOK                   = 250
	StatusPathCreated              = 257
	StatusUserOK                   = 331
	StatusFileActionPending        = 350
	StatusServiceNotAvailable      = 421
	StatusCannotOpenDataConnection = 425
	StatusConnectionClosed         = 426
	StatusActionNotTaken           = 450
	StatusActionAbortedLocalError  = 451
	StatusSyntaxErrorNotRecognised = 500
	StatusSyntaxErrorParameters    = 501
	StatusCommandNotImplemented    = 502
	StatusBadCommandSequence       = 503
	StatusNotLoggedIn              = 530
	StatusFileActionNotTaken       = 550

	StatusFileStatus     = 213
	StatusSystemType     = 215
	StatusSystemStatus   = 211
	StatusHelp           = 214
	StatusOK             = 200
	StatusEnteringPASV   = 227
	StatusFileStatusOK   = 150
	StatusClosingDataConn = 226
)
