package checkout

// Field names a checkout form input.
type Field string

const (
	FieldName          Field = "name"
	FieldEmail         Field = "email"
	FieldPhone         Field = "phone"
	FieldAddress       Field = "address"
	FieldCity          Field = "city"
	FieldState         Field = "state"
	FieldZipCode       Field = "zipCode"
	FieldPaymentMethod Field = "paymentMethod"
	FieldCardType      Field = "cardType"
	FieldCardNumber    Field = "cardNumber"
	FieldCardExpiry    Field = "cardExpiry"
	FieldCardCVC       Field = "cardCvc"
)

var (
	shippingFields = []Field{FieldName, FieldEmail, FieldPhone, FieldAddress, FieldCity, FieldState, FieldZipCode}
	cardFields     = []Field{FieldCardNumber, FieldCardExpiry, FieldCardCVC}
)

var knownFields = map[Field]struct{}{
	FieldName: {}, FieldEmail: {}, FieldPhone: {}, FieldAddress: {}, FieldCity: {}, FieldState: {},
	FieldZipCode: {}, FieldPaymentMethod: {}, FieldCardType: {}, FieldCardNumber: {},
	FieldCardExpiry: {}, FieldCardCVC: {},
}

// ParseField maps a wire name onto a Field.
func ParseField(name string) (Field, bool) {
	f := Field(name)
	_, ok := knownFields[f]
	return f, ok
}

func (f Field) isCard() bool {
	for _, c := range cardFields {
		if c == f {
			return true
		}
	}
	return false
}

// ShippingDetails are the step-one inputs; every field is required.
type ShippingDetails struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
}

// CardDetails hold the card-details step inputs.
type CardDetails struct {
	Number string `json:"cardNumber"`
	Expiry string `json:"cardExpiry"`
	CVC    string `json:"cardCvc"`
}

type PaymentMethod string

const (
	PaymentUnset PaymentMethod = ""
	PaymentCOD   PaymentMethod = "cod"
	PaymentCard  PaymentMethod = "card"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCOD || m == PaymentCard
}
