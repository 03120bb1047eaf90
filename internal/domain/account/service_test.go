package account

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/carelink/carelink/internal/domain/identity"
	"github.com/carelink/carelink/internal/platform/auth"
)

type mockRepo struct {
	users map[string]*User // keyed role + "/" + login
}

func newMockRepo() *mockRepo {
	return &mockRepo{users: make(map[string]*User)}
}

func (m *mockRepo) GetByLogin(_ context.Context, role, loginID string) (*User, error) {
	if u, ok := m.users[role+"/"+loginID]; ok {
		return u, nil
	}
	return nil, ErrNotFound
}

func (m *mockRepo) Create(_ context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	m.users[u.Role+"/"+u.LoginID] = u
	return nil
}

type fakeIssuer struct {
	issued []auth.Identity
}

func (f *fakeIssuer) Issue(id auth.Identity) (string, error) {
	f.issued = append(f.issued, id)
	return "token-" + id.LoginID, nil
}

type fakeHospitals struct {
	byID map[uuid.UUID]*identity.Hospital
}

func (f *fakeHospitals) GetHospitalByID(_ context.Context, id uuid.UUID) (*identity.Hospital, error) {
	if h, ok := f.byID[id]; ok {
		return h, nil
	}
	return nil, identity.ErrNotFound
}

func newTestService(t *testing.T) (*Service, *mockRepo, *fakeIssuer, *identity.Hospital) {
	t.Helper()
	repo := newMockRepo()
	issuer := &fakeIssuer{}
	hosp := &identity.Hospital{ID: uuid.New(), Code: "HOSP-001"}
	hospitals := &fakeHospitals{byID: map[uuid.UUID]*identity.Hospital{hosp.ID: hosp}}
	return NewService(repo, issuer, hospitals, zerolog.Nop()), repo, issuer, hosp
}

func seedUser(t *testing.T, repo *mockRepo, role, login, password string, hospitalID *uuid.UUID) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &User{LoginID: login, Role: role, PasswordHash: string(hash), HospitalID: hospitalID}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return u
}

func TestLoginIssuesTokenWithHospitalCode(t *testing.T) {
	svc, repo, issuer, hosp := newTestService(t)
	seedUser(t, repo, auth.RoleClinician, "dr.rao", "correct horse battery", &hosp.ID)

	token, user, err := svc.Login(context.Background(), auth.RoleClinician, "dr.rao", "correct horse battery")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token == "" || user.LoginID != "dr.rao" {
		t.Errorf("token = %q user = %+v", token, user)
	}
	if len(issuer.issued) != 1 || issuer.issued[0].HospitalCode != "HOSP-001" {
		t.Errorf("issued identity = %+v, want hospital code resolved", issuer.issued)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	seedUser(t, repo, auth.RolePatient, "UH-1001", "correct horse battery", nil)

	_, _, err := svc.Login(context.Background(), auth.RolePatient, "UH-1001", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginUnknownUserSameError(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, _, err := svc.Login(context.Background(), auth.RolePatient, "nobody", "whatever")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials indistinguishable from wrong password", err)
	}
}

func TestLoginRoleIsPartOfTheKey(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	seedUser(t, repo, auth.RolePatient, "shared-login", "correct horse battery", nil)

	_, _, err := svc.Login(context.Background(), auth.RoleClinician, "shared-login", "correct horse battery")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, a patient credential must not open a clinician session", err)
	}
}

func TestCreateUserHashesPassword(t *testing.T) {
	svc, repo, _, _ := newTestService(t)

	u := &User{LoginID: "AMB-42", Role: auth.RolePreHospital}
	if err := svc.CreateUser(context.Background(), u, "crew secret 99"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	stored := repo.users[auth.RolePreHospital+"/AMB-42"]
	if stored.PasswordHash == "crew secret 99" {
		t.Fatal("password stored in plaintext")
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("crew secret 99")) != nil {
		t.Error("stored hash does not verify the original password")
	}
}

func TestCreateUserRejectsShortPassword(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	if err := svc.CreateUser(context.Background(), &User{LoginID: "x", Role: "patient"}, "short"); err == nil {
		t.Error("expected error for short password")
	}
}
