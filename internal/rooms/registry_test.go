package rooms

import "testing"

func TestOpenEnsuresGeneralRoom(t *testing.T) {
	reg, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	r, err := reg.GetRoom("general")
	if err != nil || r == nil {
		t.Fatalf("expected general room, got %+v err=%v", r, err)
	}
	if r.Type != RoomOpen {
		t.Fatalf("expected open room, got %s", r.Type)
	}
}

func TestCreateRoomRejectsDuplicate(t *testing.T) {
	reg, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reg.CreateRoom("proj", "Project", RoomProject, nil, ""); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if _, err := reg.CreateRoom("proj", "Project", RoomProject, nil, ""); err == nil {
		t.Fatal("expected error creating duplicate room")
	}
}

func TestGetOrCreateRoom(t *testing.T) {
	reg, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r1, err := reg.GetOrCreateRoom("x", "X", RoomOpen, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	r2, err := reg.GetOrCreateRoom("x", "X", RoomOpen, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if r1.CreatedAt != r2.CreatedAt {
		t.Fatal("expected get-or-create to return the same room, not recreate it")
	}
}

func TestDeleteRoomRemovesMappings(t *testing.T) {
	reg, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reg.CreateRoom("proj", "Project", RoomProject, nil, ""); err != nil {
		t.Fatal(err)
	}
	if err := reg.BindChannel("telegram", "123", "proj"); err != nil {
		t.Fatal(err)
	}
	ok, err := reg.DeleteRoom("proj")
	if err != nil || !ok {
		t.Fatalf("expected delete to succeed, got ok=%v err=%v", ok, err)
	}
	if rid := reg.RoomForChannel("telegram", "123"); rid != "" {
		t.Fatalf("expected mapping removed, got %q", rid)
	}
}

func TestBindChannelIdempotent(t *testing.T) {
	reg, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.BindChannel("slack", "c1", "general"); err != nil {
		t.Fatal(err)
	}
	if err := reg.BindChannel("slack", "c1", "general"); err != nil {
		t.Fatalf("expected idempotent rebind to succeed, got %v", err)
	}
	r, err := reg.GetRoom("general")
	if err != nil {
		t.Fatal(err)
	}
	count := 0
	for _, m := range r.Members {
		if m.ID == "slack:c1" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one member entry for idempotent bind, got %d", count)
	}
}

func TestUnbindMissingPairReturnsFalse(t *testing.T) {
	reg, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ok, err := reg.UnbindChannel("discord", "missing")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected unbind of missing pair to return false")
	}
}

func TestChannelBindingInvariantOneRoomPerPair(t *testing.T) {
	reg, err := Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := reg.CreateRoom("a", "A", RoomOpen, nil, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.CreateRoom("b", "B", RoomOpen, nil, ""); err != nil {
		t.Fatal(err)
	}
	if err := reg.BindChannel("slack", "c1", "a"); err != nil {
		t.Fatal(err)
	}
	if err := reg.BindChannel("slack", "c1", "b"); err != nil {
		t.Fatal(err)
	}
	if got := reg.RoomForChannel("slack", "c1"); got != "b" {
		t.Fatalf("expected rebind to move mapping to room b, got %q", got)
	}
}
