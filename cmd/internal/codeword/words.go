package codeword

// Built-in fragment lists: 100 prefixes x 100 suffixes x 100 disambiguators
// gives 1,000,000 candidates, so at 10k concurrently reserved codes a fresh
// candidate collides with probability ~1%.

var prefixFragments = []string{
	"BAK", "BEL", "BIN", "BOR", "BUN", "CAD", "CEL", "CIN", "COR", "CUB",
	"DAN", "DEL", "DIM", "DOR", "DUN", "FAB", "FEL", "FIN", "FOX", "FUR",
	"GAL", "GEM", "GIB", "GON", "GUL", "HAB", "HEL", "HID", "HOL", "HUT",
	"JAB", "JEL", "JIG", "JOT", "JUN", "KAB", "KEL", "KIN", "KOB", "KUL",
	"LAB", "LEM", "LIN", "LOM", "LUX", "MAB", "MEL", "MIN", "MOR", "MUG",
	"NAB", "NEL", "NIM", "NOR", "NUB", "PAD", "PEL", "PIN", "POD", "PUG",
	"QUA", "QUE", "QUI", "RAB", "REL", "RIM", "RON", "RUB", "SAB", "SEL",
	"SIN", "SOL", "SUM", "TAB", "TEL", "TIN", "TOR", "TUB", "VAB", "VEL",
	"VIN", "VOR", "WAB", "WEL", "WIN", "WOL", "YAB", "YEL", "ZAB", "ZEL",
	"ZIN", "ZOR", "DAB", "GOR", "HAM", "JOR", "KIT", "LOP", "MIX", "NOX",
}

var suffixFragments = []string{
	"ANT", "APE", "ASH", "BAT", "BAY", "BEE", "BOX", "BUD", "CAP", "CAT",
	"COG", "COW", "CUP", "DAY", "DEN", "DEW", "DOG", "DOT", "EEL", "EGG",
	"ELK", "ELM", "EMU", "FAN", "FIG", "FIR", "FLY", "FOG", "FOX", "FRY",
	"GUM", "GUT", "HAT", "HAY", "HEN", "HIP", "HOP", "HUT", "ICE", "INK",
	"IVY", "JAM", "JAR", "JAW", "JET", "JOY", "KEG", "KEY", "KIT", "LAB",
	"LAP", "LEG", "LID", "LIP", "LOG", "LOT", "MAP", "MAT", "MOP", "MUD",
	"NAP", "NET", "NIB", "NOD", "NUT", "OAK", "OAT", "OWL", "PAN", "PAW",
	"PEA", "PEG", "PEN", "PIE", "PIG", "PIT", "POT", "PUB", "RAT", "RAY",
	"RIB", "RUG", "RUM", "RYE", "SAP", "SAW", "SEA", "SKY", "SOY", "SUN",
	"TAR", "TEA", "TIN", "TOE", "TOP", "TOY", "TUB", "URN", "VAN", "VAT",
}
