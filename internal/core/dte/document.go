package dte

// ExpectsAll asks the issuing service to return every artifact (PDF and XML).
const ExpectsAll = "all"

// Field limits imposed by the issuing service.
const (
	MaxCodeLength        = 35
	MaxNameLength        = 80
	MaxDescriptionLength = 1000
	MaxLegalNameLength   = 100
	MaxActivityLength    = 40
	MaxAddressLength     = 50
	MaxEmailLength       = 80
	MaxPhoneLength       = 9
)

// UnitCode is the only unit of measure emitted.
const UnitCode = "UN"

// DefaultAddress replaces an empty receiver address.
const DefaultAddress = "Sin dirección"

// FinalConsumer is the identity the issuing service assigns to receipts
// emitted without a receptor block.
var FinalConsumer = Party{RUT: "66666666-6", LegalName: "CONSUMIDOR FINAL"}

// DocumentRequest is the body posted to the issuing service.
type DocumentRequest struct {
	Issuer    Issuer       `json:"emisor"`
	Receiver  *Receiver    `json:"receptor,omitempty"`
	Details   []DetailLine `json:"detalles"`
	Reference *Reference   `json:"referencia,omitempty"`
	Expects   string       `json:"expects"`
}

// Issuer carries document-level metadata.
type Issuer struct {
	Kind         Kind   `json:"tipodoc"`
	ServiceType  int    `json:"servicio,omitempty"`
	IssueDate    string `json:"fecha,omitempty"`
	Observations string `json:"observaciones,omitempty"`
}

type Receiver struct {
	RUT       string `json:"rut"`
	LegalName string `json:"rs"`
	Activity  string `json:"giro,omitempty"`
	Commune   int    `json:"comuna"`
	City      int    `json:"ciudad"`
	Address   string `json:"direccion"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"telefono,omitempty"`
}

// DetailLine is one fiscal line of a document.
type DetailLine struct {
	Code        string `json:"codigo"`
	Name        string `json:"nombre"`
	Quantity    int    `json:"cantidad"`
	Unit        string `json:"unidad"`
	Price       int64  `json:"precio"`
	Exempt      bool   `json:"exento"`
	Description string `json:"descripcion"`
}

// Reference cites the document a credit note corrects.
type Reference struct {
	Kind  Kind   `json:"tipodoc"`
	Folio string `json:"folio"`
	Date  string `json:"fecha"`
}

// Party is the buyer data collected from the sale source, before truncation.
type Party struct {
	RUT       string
	LegalName string
	Activity  string
	Address   string
	Commune   string
	City      string
	Email     string
	Phone     string
}

// ReceiverRUT returns the RUT the document will be issued to.
func (r DocumentRequest) ReceiverRUT() string {
	if r.Receiver == nil {
		return FinalConsumer.RUT
	}
	return r.Receiver.RUT
}
