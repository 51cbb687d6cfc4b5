package bolagsverket

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"
)

const sampleIXBRL = `<html xmlns:ix="http://www.xbrl.org/2013/inlineXBRL">
<body>
<ix:nonNumeric name="se-cd-base:RakenskapsarForstaDag" contextRef="period0">2023-01-01</ix:nonNumeric>
<ix:nonNumeric name="se-cd-base:RakenskapsarSistaDag" contextRef="period0">2023-12-31</ix:nonNumeric>
<ix:nonFraction name="se-gen-base:Nettoomsattning" contextRef="period1" scale="3" unitRef="SEK">1 100</ix:nonFraction>
<ix:nonFraction name="se-gen-base:Nettoomsattning" contextRef="period0" scale="3" unitRef="SEK">1 234</ix:nonFraction>
<ix:nonFraction name="se-gen-base:AretsResultat" contextRef="period0" scale="0" unitRef="SEK" sign="-">56789</ix:nonFraction>
<ix:nonFraction name="se-gen-base:EgetKapital" contextRef="balans0" scale="3" unitRef="SEK"><span>2 500</span></ix:nonFraction>
<ix:nonFraction name="se-gen-base:Soliditet" contextRef="balans0" scale="0" unitRef="procent">45,6</ix:nonFraction>
<ix:nonFraction name="se-gen-base:MedelantalAnstallda" contextRef="period0" scale="0">12</ix:nonFraction>
</body>
</html>`

func TestParseArsredovisningPlainDocument(t *testing.T) {
	rapport, err := ParseArsredovisning([]byte(sampleIXBRL))
	if err != nil {
		t.Fatalf("ParseArsredovisning: %v", err)
	}

	if rapport.RakenskapsarStart != "2023-01-01" || rapport.RakenskapsarSlut != "2023-12-31" {
		t.Errorf("period = %q – %q", rapport.RakenskapsarStart, rapport.RakenskapsarSlut)
	}

	n := rapport.Nyckeltal
	if n.Nettoomsattning == nil || *n.Nettoomsattning != 1234000 {
		t.Errorf("nettoomsattning = %v, want 1234000 (period0 preferred, scale applied)", n.Nettoomsattning)
	}
	if n.AretsResultat == nil || *n.AretsResultat != -56789 {
		t.Errorf("arets_resultat = %v, want -56789", n.AretsResultat)
	}
	if n.EgetKapital == nil || *n.EgetKapital != 2500000 {
		t.Errorf("eget_kapital = %v, want 2500000 (inner markup stripped)", n.EgetKapital)
	}
	if n.Soliditet == nil || *n.Soliditet != 45.6 {
		t.Errorf("soliditet = %v, want 45.6", n.Soliditet)
	}
	if n.AntalAnstallda == nil || *n.AntalAnstallda != 12 {
		t.Errorf("antal_anstallda = %v, want 12", n.AntalAnstallda)
	}
	if n.ResultatEfterFinansiella != nil {
		t.Errorf("resultat_efter_finansiella = %v, want nil for absent tag", n.ResultatEfterFinansiella)
	}
}

func TestParseArsredovisningZipArchive(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("arsredovisning.xhtml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte(sampleIXBRL)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	rapport, err := ParseArsredovisning(buf.Bytes())
	if err != nil {
		t.Fatalf("ParseArsredovisning: %v", err)
	}
	if rapport.Nyckeltal.Nettoomsattning == nil {
		t.Error("expected figures from archived document")
	}
}

func TestParseArsredovisningCorruptZip(t *testing.T) {
	corrupt := append([]byte{'P', 'K', 0x03, 0x04}, []byte("not really a zip")...)

	_, err := ParseArsredovisning(corrupt)
	if !errors.Is(err, ErrUnreadableArchive) {
		t.Errorf("err = %v, want ErrUnreadableArchive", err)
	}
}

func TestParseArsredovisningSparseDocument(t *testing.T) {
	rapport, err := ParseArsredovisning([]byte("<html><body>ingen ixbrl här</body></html>"))
	if err != nil {
		t.Fatalf("ParseArsredovisning: %v", err)
	}
	if !rapport.Nyckeltal.Empty() {
		t.Errorf("expected empty figures, got %+v", rapport.Nyckeltal)
	}
}
