package claim

// Decision is the outcome of a permission check. A denial is normal control
// flow, never an error; the reason is a short human-readable message
// attributable to the claim's owner.
type Decision struct {
	Allowed bool
	Reason  string
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny(reason string) Decision {
	return Decision{Reason: reason}
}

func (d Decision) Denied() bool {
	return !d.Allowed
}
