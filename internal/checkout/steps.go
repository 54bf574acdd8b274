package checkout

// Panel identifies what a step number shows for a payment method.
type Panel string

const (
	PanelShipping      Panel = "shipping"
	PanelPaymentMethod Panel = "payment-method"
	PanelCardType      Panel = "card-type"
	PanelCardDetails   Panel = "card-details"
	PanelConfirm       Panel = "confirm"
	PanelSuccess       Panel = "success"
	PanelNone          Panel = ""
)

const (
	StepShipping      = 1
	StepPaymentMethod = 2
)

var topology = map[PaymentMethod][]Panel{
	PaymentUnset: {PanelShipping, PanelPaymentMethod},
	PaymentCOD:   {PanelShipping, PanelPaymentMethod, PanelConfirm, PanelSuccess},
	PaymentCard:  {PanelShipping, PanelPaymentMethod, PanelCardType, PanelCardDetails, PanelConfirm, PanelSuccess},
}

// StepCount is the number of steps for m: 4 for cash on delivery, 6 for card,
// and 2 while no method has been chosen.
func StepCount(m PaymentMethod) int {
	return len(topology[m])
}

// TerminalStep is the success step for m.
func TerminalStep(m PaymentMethod) int {
	return StepCount(m)
}

// ConfirmStep is the step whose advance places the order, or 0 when m has none.
func ConfirmStep(m PaymentMethod) int {
	for i, p := range topology[m] {
		if p == PanelConfirm {
			return i + 1
		}
	}
	return 0
}

// PanelAt maps a 1-indexed step onto its panel.
func PanelAt(m PaymentMethod, step int) Panel {
	panels := topology[m]
	if step < 1 || step > len(panels) {
		return PanelNone
	}
	return panels[step-1]
}
