package bolagsverket

// Wire types for the registry's organisation record. Only the fields the
// service reads are declared; the upstream payload carries many more.

type Organisation struct {
	Organisationsnamn  Organisationsnamn  `json:"organisationsnamn"`
	Organisationsform  Kodtext            `json:"organisationsform"`
	JuridiskForm       Kodtext            `json:"juridiskForm"`
	Organisationsdatum Organisationsdatum `json:"organisationsdatum"`

	AvregistreradOrganisation Avregistrering `json:"avregistreradOrganisation"`
	VerksamOrganisation       Kodtext        `json:"verksamOrganisation"`

	PagaendeForfaranden []Forfarande `json:"pagaendeAvvecklingsEllerOmstruktureringsforfaranden"`

	Verksamhetsbeskrivning Beskrivning        `json:"verksamhetsbeskrivning"`
	PostadressOrganisation PostadressWrapper  `json:"postadressOrganisation"`
	Naringsgren            Naringsgren        `json:"naringsgrenOrganisation"`
	Sate                   Sate               `json:"sate"`
}

type Organisationsnamn struct {
	Lista []Namnpost `json:"organisationsnamnLista"`
}

type Namnpost struct {
	Namn string `json:"namn"`
}

type Kodtext struct {
	Kod      string `json:"kod"`
	Klartext string `json:"klartext"`
}

type Organisationsdatum struct {
	Registreringsdatum string `json:"registreringsdatum"`
}

type Avregistrering struct {
	Avregistreringsdatum string `json:"avregistreringsdatum"`
}

// Forfarande is an ongoing winding-up or restructuring procedure, such
// as a liquidation or company reconstruction.
type Forfarande struct {
	Typ   Kodtext `json:"forfarandetyp"`
	Datum string  `json:"datum"`
}

type Beskrivning struct {
	Beskrivning string `json:"beskrivning"`
}

type PostadressWrapper struct {
	Postadress Postadress `json:"postadress"`
}

type Postadress struct {
	Utdelningsadress string `json:"utdelningsadress"`
	Postnummer       string `json:"postnummer"`
	Postort          string `json:"postort"`
	Land             string `json:"land"`
}

type Naringsgren struct {
	SNI []SNIKod `json:"sni"`
}

type SNIKod struct {
	Kod      string `json:"kod"`
	Klartext string `json:"klartext"`
}

type Sate struct {
	Kommun string `json:"kommun"`
	Lan    string `json:"lan"`
}

// Dokument is one entry from the document list endpoint.
type Dokument struct {
	DokumentID           string `json:"dokumentId"`
	Filformat            string `json:"filformat"`
	Rapporteringsperiod  Period `json:"rakenskapsperiod"`
	Registreringstidpunkt string `json:"registreringstidpunkt"`
}

// Period is a reporting period on the wire, keyed fran/till.
type Period struct {
	Fran string `json:"fran"`
	Till string `json:"till"`
}

// CompanyInfo is the flattened record the tools expose to the model.
type CompanyInfo struct {
	OrgNr                string   `json:"org_nummer"`
	Namn                 string   `json:"namn"`
	Organisationsform    string   `json:"organisationsform"`
	JuridiskForm         string   `json:"juridisk_form,omitempty"`
	Registreringsdatum   string   `json:"registreringsdatum,omitempty"`
	Status               string   `json:"status"`
	Avregistreringsdatum string   `json:"avregistreringsdatum,omitempty"`
	Adress               Adress   `json:"adress"`
	Verksamhet           string   `json:"verksamhet,omitempty"`
	SNIKoder             []SNIKod `json:"sni_koder,omitempty"`
	Sate                 string   `json:"sate,omitempty"`
}

type Adress struct {
	Utdelningsadress string `json:"utdelningsadress"`
	Postnummer       string `json:"postnummer"`
	Postort          string `json:"postort"`
}

const (
	StatusActive       = "Aktiv"
	StatusDeregistered = "Avregistrerad"
)

// Name returns the organisation's current name, or "Okänt" when the
// registry record carries none.
func (o *Organisation) Name() string {
	if len(o.Organisationsnamn.Lista) > 0 && o.Organisationsnamn.Lista[0].Namn != "" {
		return o.Organisationsnamn.Lista[0].Namn
	}
	return "Okänt"
}

// Deregistered reports whether the organisation is formally removed from
// the registry.
func (o *Organisation) Deregistered() bool {
	return o.AvregistreradOrganisation.Avregistreringsdatum != ""
}

// Status returns the presentation status string.
func (o *Organisation) Status() string {
	if o.Deregistered() {
		return StatusDeregistered
	}
	return StatusActive
}

// Shape flattens a registry record into the tool-facing CompanyInfo.
// The organisation number is taken from the lookup, not the record, so
// it always reflects what the caller asked for.
func (o *Organisation) Shape(orgnr string) *CompanyInfo {
	info := &CompanyInfo{
		OrgNr:                FormatOrgNr(NormalizeOrgNr(orgnr)),
		Namn:                 o.Name(),
		Organisationsform:    o.Organisationsform.Klartext,
		JuridiskForm:         o.JuridiskForm.Klartext,
		Registreringsdatum:   o.Organisationsdatum.Registreringsdatum,
		Status:               o.Status(),
		Avregistreringsdatum: o.AvregistreradOrganisation.Avregistreringsdatum,
		Adress: Adress{
			Utdelningsadress: o.PostadressOrganisation.Postadress.Utdelningsadress,
			Postnummer:       o.PostadressOrganisation.Postadress.Postnummer,
			Postort:          o.PostadressOrganisation.Postadress.Postort,
		},
		Verksamhet: o.Verksamhetsbeskrivning.Beskrivning,
		Sate:       o.Sate.Lan,
	}
	if info.Organisationsform == "" {
		info.Organisationsform = "-"
	}
	for _, s := range o.Naringsgren.SNI {
		if s.Kod != "" {
			info.SNIKoder = append(info.SNIKoder, s)
		}
	}
	return info
}
