package record

// DefaultCountry is the country a blank address starts with.
const DefaultCountry = "US"

// Address is a billing or shipping address. The engine never validates it;
// hosts report validity alongside every update.
type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Country   string `json:"country"`
	Street    string `json:"street"`
	AptNo     string `json:"apt_no"`
	City      string `json:"city"`
	Zip       string `json:"zip"`
	State     string `json:"state"`
	TaxNumber string `json:"tax_number"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// DefaultAddress returns a blank address in DefaultCountry.
func DefaultAddress() *Address {
	return &Address{Country: DefaultCountry}
}

// Clone returns a copy of a, or nil when a is nil.
func (a *Address) Clone() *Address {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

// FullName joins first and last name with a single space.
func (a *Address) FullName() string {
	switch {
	case a.FirstName == "":
		return a.LastName
	case a.LastName == "":
		return a.FirstName
	default:
		return a.FirstName + " " + a.LastName
	}
}
