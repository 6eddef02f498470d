package wordweave

// Name and Description identify the module in CLI help and request headers.
const (
	Name        = "wordweave"
	Description = "Weaves learning-language vocabulary into the pages you read"
)

// Build information, set at release time with
//
//	go build -ldflags "-X github.com/ZaguanLabs/wordweave.Version=1.0.0"
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// FullVersion returns the version with the short commit appended when known.
func FullVersion() string {
	v := Version
	if GitCommit != "unknown" && GitCommit != "" {
		short := GitCommit
		if len(short) > 7 {
			short = short[:7]
		}
		v += "+" + short
	}
	return v
}

// UserAgent is sent with every provider request.
func UserAgent() string {
	return Name + "/" + FullVersion()
}
