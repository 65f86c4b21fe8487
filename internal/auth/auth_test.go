package auth

import "testing"

func TestIssueAndParse(t *testing.T) {
	token, ident, err := IssueGuestToken("test-secret", "Alice")
	if err != nil {
		t.Fatalf("IssueGuestToken failed: %v", err)
	}
	if ident.PlayerID == "" || ident.Name != "Alice" {
		t.Errorf("Identity wrong: %+v", ident)
	}

	parsed, err := ParseToken("test-secret", token)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if parsed != ident {
		t.Errorf("Round trip mismatch: got %+v, want %+v", parsed, ident)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, _, err := IssueGuestToken("secret-a", "Alice")
	if err != nil {
		t.Fatalf("IssueGuestToken failed: %v", err)
	}
	if _, err := ParseToken("secret-b", token); err == nil {
		t.Errorf("Token signed with another secret parsed successfully")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := ParseToken("secret", "not-a-token"); err == nil {
		t.Errorf("Garbage token parsed successfully")
	}
}

func TestDistinctGuestsGetDistinctIDs(t *testing.T) {
	_, a, _ := IssueGuestToken("s", "Alice")
	_, b, _ := IssueGuestToken("s", "Alice")
	if a.PlayerID == b.PlayerID {
		t.Errorf("Two guests share a player id: %s", a.PlayerID)
	}
}
