package extract

import (
	"regexp"
	"strings"

	"github.com/scontrinidev/scontrini/internal/models"
)

// Format is a recognized receipt layout convention.
type Format string

const (
	FormatIperal  Format = "iperal"
	FormatMD      Format = "md"
	FormatGeneric Format = "generic"
	FormatUnknown Format = "unknown"
)

var mdWordRE = regexp.MustCompile(`\bMD\b`)

// DetectFormat classifies the receipt layout from the extracted merchant.
// The detection only orders which parser is tried first; every registered
// parser still runs.
func DetectFormat(m models.Merchant) Format {
	name := ""
	if m.Name != nil {
		name = strings.ToUpper(*m.Name)
	}
	addr := ""
	if m.Address != nil {
		addr = strings.ToUpper(*m.Address)
	}

	if strings.Contains(name, "IPERAL") {
		return FormatIperal
	}
	if mdWordRE.MatchString(name) || strings.Contains(name, "MD SPA") || mdWordRE.MatchString(addr) {
		return FormatMD
	}
	return FormatGeneric
}
