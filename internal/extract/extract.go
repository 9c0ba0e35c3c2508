package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/scontrinidev/scontrini/internal/models"
)

const (
	maxMerchantNameLen    = 120
	maxMerchantAddressLen = 200
)

var (
	vatIDRE = regexp.MustCompile(`(?i)\b(?:P\.?\s*IVA|PIVA|VAT)\s*[:\-]?\s*([A-Z0-9]{8,15})\b`)
	dateRE  = regexp.MustCompile(`\b(\d{2}[/\-.]\d{2}[/\-.]\d{2,4})\b`)
	timeRE  = regexp.MustCompile(`\b(\d{2}:\d{2})\b`)

	totalRE    = regexp.MustCompile(`(?i)\b(?:TOTALE|TOT|TOTAL)\b.*?(\d+[,.]\d{2})\b`)
	monetaRE   = regexp.MustCompile(`(?i)\bMoneta\s+altro\b.*?(\d+[,.]\d{2})\b`)
	vatTotalRE = regexp.MustCompile(`(?i)\bDI\s+CUI\s+IVA\b.*?(\d+[,.]\d{2})\b`)
	paidRE     = regexp.MustCompile(`(?i)\bIMPORTO\s+PAGATO\b.*?(\d+[,.]\d{2})\b`)

	declaredCountRE = regexp.MustCompile(`(?i)\bARTICOLI\s+(\d+)\b`)

	docNumRE      = regexp.MustCompile(`(?i)\bDOC\.?\s*NUM\.?\s*[:\-]?\s*([A-Z0-9][A-Z0-9\-/]{2,})\b`)
	docNumLooseRE = regexp.MustCompile(`(?i)\b(?:DOC|DOCUMENTO|N\.|NR)\s*[:\-]?\s*([A-Z0-9\-/]+)\b`)

	postalCodeRE  = regexp.MustCompile(`\b\d{5}\b`)
	legalEntityRE = regexp.MustCompile(`(?i)\b(SPA|S\.P\.A\.|SRL|S\.R\.L\.|SUPERMERCATI|MARKET|IPER)\b`)
	upperRuneRE   = regexp.MustCompile(`[A-Z]`)
	tableBorderRE = regexp.MustCompile(`[|_]{2,}`)

	merchantCharRE = regexp.MustCompile(`[^A-Za-z0-9À-ÿ\s.\-]`)
	multiSpaceRE   = regexp.MustCompile(`\s+`)
)

// parseMoney converts a monetary token of the shape `\d+[.,]\d{2}` to a
// float: dots are treated as thousands separators and removed, the comma
// becomes the decimal point ("1.234,56" -> 1234.56). A malformed token
// yields nil, never an error.
func parseMoney(s string) *float64 {
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// scoreMerchantLine rates a line as a merchant-name candidate. Legal-entity
// markers and a healthy dose of uppercase push the score up; OCR
// table-border artifacts and very short lines push it down.
func scoreMerchantLine(l string) int {
	s := 0
	if legalEntityRE.MatchString(l) {
		s += 6
	}
	if len(upperRuneRE.FindAllString(l, -1)) >= 6 {
		s += 2
	}
	if tableBorderRE.MatchString(l) {
		s -= 6
	}
	if len(l) < 4 {
		s -= 10
	}
	return s
}

func cleanMerchantLine(s string) string {
	s = merchantCharRE.ReplaceAllString(s, " ")
	return strings.TrimSpace(multiSpaceRE.ReplaceAllString(s, " "))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}

// ParseMerchant extracts merchant identity from the document. The name is
// the best-scoring line among the first ten non-blank lines, falling back to
// the literal first line when nothing scores above zero; ties keep the first
// occurrence. The address is the first line carrying a 5-digit postal code.
func ParseMerchant(doc Document) models.Merchant {
	m := models.NewMerchant()

	if len(doc.Lines) > 0 {
		top := doc.Lines
		if len(top) > 10 {
			top = top[:10]
		}
		best, bestScore := "", 0
		for _, l := range top {
			if s := scoreMerchantLine(l); best == "" || s > bestScore {
				best, bestScore = l, s
			}
		}
		name := doc.Lines[0]
		if bestScore > 0 {
			name = best
		}
		name = truncate(name, maxMerchantNameLen)
		m.Name = &name
	}

	if g := vatIDRE.FindStringSubmatch(doc.Text); g != nil {
		m.VATID = &g[1]
	}

	for _, l := range doc.Lines {
		if postalCodeRE.MatchString(l) {
			addr := truncate(cleanMerchantLine(l), maxMerchantAddressLen)
			m.Address = &addr
			break
		}
	}

	return m
}

// ParseReceiptInfo extracts document metadata: a date token, an adjacent
// time token when present, and the document number (labelled "DOC NUM"
// preferred, looser document labels as fallback).
func ParseReceiptInfo(doc Document) models.ReceiptInfo {
	info := models.NewReceiptInfo()

	date := dateRE.FindStringSubmatch(doc.Text)
	clock := timeRE.FindStringSubmatch(doc.Text)
	switch {
	case date != nil && clock != nil:
		dt := date[1] + " " + clock[1]
		info.DateTime = &dt
	case date != nil:
		info.DateTime = &date[1]
	}

	docNum := docNumRE.FindStringSubmatch(doc.Text)
	if docNum == nil {
		docNum = docNumLooseRE.FindStringSubmatch(doc.Text)
	}
	if docNum != nil {
		info.DocumentNumber = &docNum[1]
	}

	return info
}

// ParseTotals extracts the document total (labelled "TOTALE", with "Moneta
// altro" as fallback) and the VAT total ("DI CUI IVA").
func ParseTotals(doc Document) models.Totals {
	var totals models.Totals

	if g := totalRE.FindStringSubmatch(doc.Text); g != nil {
		totals.Total = parseMoney(g[1])
	} else if g := monetaRE.FindStringSubmatch(doc.Text); g != nil {
		totals.Total = parseMoney(g[1])
	}

	if g := vatTotalRE.FindStringSubmatch(doc.Text); g != nil {
		totals.VATTotal = parseMoney(g[1])
	}

	return totals
}

// ExtractPaidAmount finds the "IMPORTO PAGATO" monetary token. Used only by
// the consistency audit, never stored on the contract.
func ExtractPaidAmount(doc Document) *float64 {
	if g := paidRE.FindStringSubmatch(doc.Text); g != nil {
		return parseMoney(g[1])
	}
	return nil
}

// ExtractDeclaredItemCount finds the "ARTICOLI <N>" counter printed by the
// register. Used only for candidate scoring and auditing.
func ExtractDeclaredItemCount(doc Document) *int {
	if g := declaredCountRE.FindStringSubmatch(doc.Text); g != nil {
		if n, err := strconv.Atoi(g[1]); err == nil {
			return &n
		}
	}
	return nil
}
