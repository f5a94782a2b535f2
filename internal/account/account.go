// Package account holds pure account-id arithmetic: the display-region
// classifier and the opaque external-id decode used by the game server's
// share links.
package account

// Zone is a display-region tag derived from an account id.
type Zone string

const (
	ZoneC Zone = "Ⓒ"
	ZoneJ Zone = "Ⓙ"
	ZoneE Zone = "Ⓔ"
	ZoneN Zone = "Ⓝ"
)

// ZoneOf buckets an account id into its region by the id's high bits.
func ZoneOf(accountID int64) Zone {
	prefix := accountID >> 23
	switch {
	case prefix >= 0 && prefix <= 6:
		return ZoneC
	case prefix >= 7 && prefix <= 12:
		return ZoneJ
	case prefix >= 13 && prefix <= 15:
		return ZoneE
	default:
		return ZoneN
	}
}

const (
	eidOffset  = 10000000
	lowMask    = 0x3FFFFFF  // low 26 bits
	rotMask    = 0x1FFFF    // low 17 bits
	highMask   = 0xFC000000 // everything above the low 26 bits
	decodeXOR  = 6139246
	rotateStep = 5
)

// DecodeAccountID converts a shared external id into an account id. The
// transform mirrors the client's obfuscation: subtract a fixed offset, rotate
// the low 26 bits five times, then xor with a fixed constant. Non-positive
// inputs after the offset decode to 0.
func DecodeAccountID(externalID int64) int64 {
	e := int32(externalID - eidOffset)
	if e <= 0 {
		return 0
	}
	t := uint32(e) & lowMask
	for i := 0; i < rotateStep; i++ {
		t = (t&rotMask)<<9 | t>>17
	}
	return int64(int32(uint32(e)&highMask+t) ^ decodeXOR)
}
