package fingerprint

import "testing"

func TestDigestDeterministic(t *testing.T) {
	t.Parallel()

	first := Digest(1001, "OT-55")
	second := Digest(1001, "OT-55")
	if first != second {
		t.Fatalf("same inputs produced %s and %s", first, second)
	}

	if len(first) != 32 {
		t.Fatalf("expected 32 hex chars, got %d: %s", len(first), first)
	}
	for _, c := range first {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			t.Fatalf("digest is not lowercase hex: %s", first)
		}
	}
}

func TestDigestDistinguishesInputs(t *testing.T) {
	t.Parallel()

	if Digest(1001, "OT-55") == Digest(1001, "OT-56") {
		t.Fatal("different work order numbers produced identical digests")
	}
	if Digest(1001, "OT-55") == Digest(1002, "OT-55") {
		t.Fatal("different activity ids produced identical digests")
	}
}

func TestDigestOrderSensitive(t *testing.T) {
	t.Parallel()

	if Digest("a", "b") == Digest("b", "a") {
		t.Fatal("digest must be order-sensitive")
	}
}
