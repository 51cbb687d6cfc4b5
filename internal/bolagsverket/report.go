package bolagsverket

import (
	"archive/zip"
	"bytes"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Annual reports are delivered as ZIP archives containing a single iXBRL
// (Inline XBRL) XHTML document. Extraction is best-effort: the taxonomy
// varies between filing years, so figures are matched by tag name
// substring and any figure that cannot be located is simply omitted.

var zipMagic = []byte{'P', 'K', 0x03, 0x04}

// Nyckeltal holds the key figures extracted from one annual report.
// All amounts are in SEK. Nil fields were not present in the filing.
type Nyckeltal struct {
	Nettoomsattning          *int64   `json:"nettoomsattning,omitempty"`
	ResultatEfterFinansiella *int64   `json:"resultat_efter_finansiella,omitempty"`
	AretsResultat            *int64   `json:"arets_resultat,omitempty"`
	EgetKapital              *int64   `json:"eget_kapital,omitempty"`
	Soliditet                *float64 `json:"soliditet,omitempty"`
	AntalAnstallda           *int64   `json:"antal_anstallda,omitempty"`
}

// Empty reports whether no figure at all was found.
func (n *Nyckeltal) Empty() bool {
	return n.Nettoomsattning == nil && n.ResultatEfterFinansiella == nil &&
		n.AretsResultat == nil && n.EgetKapital == nil &&
		n.Soliditet == nil && n.AntalAnstallda == nil
}

// Arsredovisning is a parsed annual report.
type Arsredovisning struct {
	RakenskapsarStart string     `json:"rakenskapsar_start,omitempty"`
	RakenskapsarSlut  string     `json:"rakenskapsar_slut,omitempty"`
	Nyckeltal         *Nyckeltal `json:"nyckeltal"`
}

// ParseArsredovisning extracts key figures from a downloaded document.
// The payload may be the raw iXBRL document or a ZIP archive wrapping it.
// A payload with a ZIP signature that cannot be opened yields
// ErrUnreadableArchive.
func ParseArsredovisning(raw []byte) (*Arsredovisning, error) {
	doc, err := reportDocument(raw)
	if err != nil {
		return nil, err
	}

	p := newIXBRLDocument(doc)
	return &Arsredovisning{
		RakenskapsarStart: p.text("RakenskapsarForstaDag"),
		RakenskapsarSlut:  p.text("RakenskapsarSistaDag"),
		Nyckeltal: &Nyckeltal{
			Nettoomsattning:          p.amount("Nettoomsattning", "period0"),
			ResultatEfterFinansiella: p.amount("ResultatEfterFinansiellaPoster", "period0"),
			AretsResultat:            p.amount("AretsResultat", "period0"),
			EgetKapital:              p.amount("EgetKapital", "balans0"),
			Soliditet:                p.decimal("Soliditet", "balans0"),
			AntalAnstallda:           p.amount("MedelantalAnstallda", "period0"),
		},
	}, nil
}

// reportDocument returns the iXBRL document body, unwrapping a ZIP
// archive when present.
func reportDocument(raw []byte) (string, error) {
	if !bytes.HasPrefix(raw, zipMagic) {
		return string(raw), nil
	}

	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", ErrUnreadableArchive
	}

	var fallback *zip.File
	for _, f := range zr.File {
		name := strings.ToLower(f.Name)
		if strings.HasSuffix(name, ".xhtml") || strings.HasSuffix(name, ".html") || strings.HasSuffix(name, ".xml") {
			return readZipFile(f)
		}
		if fallback == nil {
			fallback = f
		}
	}
	if fallback != nil {
		return readZipFile(fallback)
	}
	return "", ErrUnreadableArchive
}

func readZipFile(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", ErrUnreadableArchive
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return "", ErrUnreadableArchive
	}
	return string(data), nil
}

var (
	nonFractionRe = regexp.MustCompile(`(?is)<ix:nonFraction\b([^>]*)>(.*?)</ix:nonFraction>`)
	nonNumericRe  = regexp.MustCompile(`(?is)<ix:nonNumeric\b([^>]*)>(.*?)</ix:nonNumeric>`)
	innerTagRe    = regexp.MustCompile(`<[^>]+>`)
)

type ixFact struct {
	name       string
	contextRef string
	scale      int
	sign       string
	value      string
}

type ixbrlDocument struct {
	facts []ixFact
	texts []ixFact
}

func newIXBRLDocument(doc string) *ixbrlDocument {
	d := &ixbrlDocument{}
	for _, m := range nonFractionRe.FindAllStringSubmatch(doc, -1) {
		d.facts = append(d.facts, parseFact(m[1], m[2]))
	}
	for _, m := range nonNumericRe.FindAllStringSubmatch(doc, -1) {
		d.texts = append(d.texts, parseFact(m[1], m[2]))
	}
	return d
}

func parseFact(attrs, body string) ixFact {
	scale := 0
	if s := xmlAttr(attrs, "scale"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			scale = n
		}
	}
	value := strings.TrimSpace(innerTagRe.ReplaceAllString(body, ""))
	return ixFact{
		name:       xmlAttr(attrs, "name"),
		contextRef: xmlAttr(attrs, "contextRef"),
		scale:      scale,
		sign:       xmlAttr(attrs, "sign"),
		value:      value,
	}
}

var attrRes = map[string]*regexp.Regexp{
	"name":       regexp.MustCompile(`(?i)\bname\s*=\s*"([^"]*)"`),
	"contextRef": regexp.MustCompile(`(?i)\bcontextref\s*=\s*"([^"]*)"`),
	"scale":      regexp.MustCompile(`(?i)\bscale\s*=\s*"([^"]*)"`),
	"sign":       regexp.MustCompile(`(?i)\bsign\s*=\s*"([^"]*)"`),
}

func xmlAttr(attrs, name string) string {
	if m := attrRes[name].FindStringSubmatch(attrs); m != nil {
		return m[1]
	}
	return ""
}

// find returns the fact whose name contains the pattern, preferring the
// given context over the first match.
func find(facts []ixFact, pattern, context string) *ixFact {
	lower := strings.ToLower(pattern)
	var first *ixFact
	for i := range facts {
		if !strings.Contains(strings.ToLower(facts[i].name), lower) {
			continue
		}
		if facts[i].contextRef == context {
			return &facts[i]
		}
		if first == nil {
			first = &facts[i]
		}
	}
	return first
}

func (d *ixbrlDocument) text(pattern string) string {
	if f := find(d.texts, pattern, ""); f != nil {
		return f.value
	}
	return ""
}

func (d *ixbrlDocument) amount(pattern, context string) *int64 {
	f := find(d.facts, pattern, context)
	if f == nil {
		return nil
	}
	v, ok := parseNumeric(f)
	if !ok {
		return nil
	}
	n := int64(math.Round(v))
	return &n
}

func (d *ixbrlDocument) decimal(pattern, context string) *float64 {
	f := find(d.facts, pattern, context)
	if f == nil {
		return nil
	}
	v, ok := parseNumeric(f)
	if !ok {
		return nil
	}
	return &v
}

func parseNumeric(f *ixFact) (float64, bool) {
	s := f.value
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", ".")
	s = strings.ReplaceAll(s, "−", "-")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	v *= math.Pow10(f.scale)
	if f.sign == "-" && v > 0 {
		v = -v
	}
	return v, true
}
