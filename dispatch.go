package ftpd

// commandDescriptor is a dispatch-table entry (spec §4.D): whether the verb
// is reachable before authentication, whether it opens a data transfer (and
// so must run off the command-reading goroutine so ABOR can interrupt it),
// and the handler itself.
type commandDescriptor struct {
	open            bool // reachable from the pre-auth whitelist
	transferRelated bool
	special         bool // runs without waiting for an in-flight transfer (ABOR)
	fn              func(s *Session, param string) error
}

// commandsMap is the verb → handler table. Verbs not present here are
// unknown and get a 500 response. This mirrors the teacher's commandsMap,
// trimmed to the verb set spec §4.B enumerates plus ALLO (a no-op), EPSV/EPRT
// (always rejected) and the small set of harmless legacy aliases real
// clients still send.
//
//nolint:gochecknoglobals
var commandsMap = map[string]*commandDescriptor{
	"USER": {open: true, fn: (*Session).handleUSER},
	"PASS": {open: true, fn: (*Session).handlePASS},
	"QUIT": {open: true, fn: (*Session).handleQUIT},

	"NOOP": {open: true, fn: (*Session).handleNOOP},
	"SYST": {open: true, fn: (*Session).handleSYST},
	"FEAT": {open: true, fn: (*Session).handleFEAT},
	"HELP": {open: true, fn: (*Session).handleHELP},
	"AUTH": {open: true, fn: (*Session).handleAUTH},

	"TYPE": {fn: (*Session).handleTYPE},
	"STRU": {fn: (*Session).handleSTRU},
	"MODE": {fn: (*Session).handleMODE},

	"PWD":  {fn: (*Session).handlePWD},
	"XPWD": {fn: (*Session).handlePWD},
	"CWD":  {fn: (*Session).handleCWD},
	"XCWD": {fn: (*Session).handleCWD},
	"CDUP": {fn: (*Session).handleCDUP},
	"XCUP": {fn: (*Session).handleCDUP},
	"MKD":  {fn: (*Session).handleMKD},
	"XMKD": {fn: (*Session).handleMKD},
	"RMD":  {fn: (*Session).handleRMD},
	"XRMD": {fn: (*Session).handleRMD},

	"DELE": {fn: (*Session).handleDELE},
	"RNFR": {fn: (*Session).handleRNFR},
	"RNTO": {fn: (*Session).handleRNTO},

	"SIZE": {fn: (*Session).handleSIZE},
	"MDTM": {fn: (*Session).handleMDTM},
	"REST": {fn: (*Session).handleREST},
	"ALLO": {fn: (*Session).handleALLO},

	"PORT": {fn: (*Session).handlePORT},
	"PASV": {fn: (*Session).handlePASV},
	"EPSV": {fn: (*Session).handleEPSVEPRT},
	"EPRT": {fn: (*Session).handleEPSVEPRT},

	"LIST": {fn: (*Session).handleLIST, transferRelated: true},
	"NLST": {fn: (*Session).handleNLST, transferRelated: true},
	"RETR": {fn: (*Session).handleRETR, transferRelated: true},
	"STOR": {fn: (*Session).handleSTOR, transferRelated: true},
	"APPE": {fn: (*Session).handleAPPE, transferRelated: true},

	"ABOR": {special: true, fn: (*Session).handleABOR},
	"SITE": {fn: (*Session).handleSITE},
}
