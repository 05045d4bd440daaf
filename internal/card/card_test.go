package card

import "testing"

func TestValidateKnownNumbers(t *testing.T) {
	cases := []struct {
		name      string
		candidate string
		valid     bool
		network   string
	}{
		{"amex", "378282246310005", true, NetworkAmex},
		{"amex corporate", "378734493671000", true, NetworkAmex},
		{"visa 16", "4111111111111111", true, NetworkVisa},
		{"visa 13", "4222222222222", true, NetworkVisa},
		{"mastercard", "5555555555554444", true, NetworkMastercard},
		{"mastercard 51", "5105105105105100", true, NetworkMastercard},
		{"discover 6011", "6011111111111117", true, NetworkDiscover},
		{"discover 65", "6500000000000002", true, NetworkDiscover},
		{"jcb", "3530111333300000", true, NetworkJCB},
		{"unknown prefix", "1234567812345670", true, NetworkUnknown},
		{"visa bad checksum", "4111111111111112", false, NetworkVisa},
		{"spaces and dashes", "4111-1111 1111-1111", true, NetworkVisa},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Validate(tc.candidate)
			if got.Valid != tc.valid {
				t.Fatalf("Validate(%q).Valid = %v, want %v", tc.candidate, got.Valid, tc.valid)
			}
			if got.Network != tc.network {
				t.Fatalf("Validate(%q).Network = %q, want %q", tc.candidate, got.Network, tc.network)
			}
		})
	}
}

func TestValidateRejectsMalformedInput(t *testing.T) {
	for _, candidate := range []string{"", "abc", "12", "41111111111", "12345678901234567890"} {
		got := Validate(candidate)
		if got.Valid {
			t.Fatalf("Validate(%q).Valid = true, want false", candidate)
		}
		if got.Network != NetworkInvalid {
			t.Fatalf("Validate(%q).Network = %q, want %q", candidate, got.Network, NetworkInvalid)
		}
	}
}

func TestValidateSingleDigitPerturbation(t *testing.T) {
	const valid = "4111111111111111"
	if !Validate(valid).Valid {
		t.Fatalf("expected %q to be valid", valid)
	}

	// Changing any single digit breaks the mod-10 sum unless the replacement
	// happens to restore it; with Luhn a single-digit substitution never does.
	for i := 0; i < len(valid); i++ {
		for d := byte('0'); d <= '9'; d++ {
			if valid[i] == d {
				continue
			}
			perturbed := valid[:i] + string(d) + valid[i+1:]
			if Validate(perturbed).Valid {
				t.Fatalf("perturbation %q unexpectedly valid", perturbed)
			}
		}
	}
}

func TestValidateDeterministic(t *testing.T) {
	const candidate = "6011000990139424"
	first := Validate(candidate)
	for i := 0; i < 100; i++ {
		if got := Validate(candidate); got != first {
			t.Fatalf("Validate not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestClassifyLengthBounds(t *testing.T) {
	// A Visa prefix with a non-Visa length classifies as Unknown, not Visa.
	got := Validate("41111111111111") // 14 digits
	if got.Network != NetworkUnknown {
		t.Fatalf("14-digit 4-prefix network = %q, want %q", got.Network, NetworkUnknown)
	}

	// JCB accepts the full 15-19 range.
	for _, candidate := range []string{
		"353011133330000",     // 15
		"3530111333300000",    // 16
		"35301113333000005",   // 17
		"353011133330000188",  // 18
		"3530111333300001869", // 19
	} {
		if got := Validate(candidate); got.Network != NetworkJCB {
			t.Fatalf("Validate(%q).Network = %q, want %q", candidate, got.Network, NetworkJCB)
		}
	}
}
