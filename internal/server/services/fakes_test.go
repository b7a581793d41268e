package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/chirper/internal/common"
	"github.com/dmitrijs2005/chirper/internal/dbx"
	"github.com/dmitrijs2005/chirper/internal/server/mail"
	"github.com/dmitrijs2005/chirper/internal/server/models"
	usersrepo "github.com/dmitrijs2005/chirper/internal/server/repositories/users"
)

// memUsers is an in-memory users.Repository.
type memUsers struct {
	mu   sync.Mutex
	byID map[string]models.User
	seq  int

	createErr error
	getErr    error
	// updateErrOnce fails the next Update and then resets.
	updateErrOnce error
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]models.User{}}
}

func (m *memUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	for _, existing := range m.byID {
		if strings.EqualFold(existing.Email, u.Email) {
			return nil, common.ErrorConflict
		}
	}
	m.seq++
	u.ID = fmt.Sprintf("u-%d", m.seq)
	m.byID[u.ID] = *u
	out := *u
	return &out, nil
}

func (m *memUsers) Get(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &u, nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, u := range m.byID {
		if strings.EqualFold(u.Email, email) {
			out := u
			return &out, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memUsers) Update(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.updateErrOnce; err != nil {
		m.updateErrOnce = nil
		return nil, err
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	upd.Apply(&u)
	m.byID[id] = u
	return &u, nil
}

func (m *memUsers) delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
}

type fakeRepoManager struct {
	u *memUsers
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository      { return m.u }

// fakeMailer records every mail and can be told to fail.
type fakeMailer struct {
	mu            sync.Mutex
	verifications []mail.VerificationMail
	resets        []mail.PasswordResetMail
	verifyErr     error
	resetErr      error
}

func (f *fakeMailer) SendVerificationEmail(ctx context.Context, to string, m mail.VerificationMail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifications = append(f.verifications, m)
	return f.verifyErr
}

func (f *fakeMailer) SendPasswordResetEmail(ctx context.Context, to string, m mail.PasswordResetMail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, m)
	return f.resetErr
}

func (f *fakeMailer) lastVerifyToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.verifications) == 0 {
		return ""
	}
	return f.verifications[len(f.verifications)-1].Token
}

func (f *fakeMailer) lastReset() mail.PasswordResetMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.resets) == 0 {
		return mail.PasswordResetMail{}
	}
	return f.resets[len(f.resets)-1]
}
