package wallet_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kobo/wallet-engine/ledger"
	"github.com/kobo/wallet-engine/wallet"
	"github.com/kobo/wallet-engine/wallet/store"
)

// =============================================================================
// FAKES - Identity, KYC, and gateway collaborators
// =============================================================================

type fakeAuth struct {
	verified map[ledger.OwnerID]bool
}

func (f *fakeAuth) IsKYCVerified(_ context.Context, owner ledger.OwnerID) (bool, error) {
	return f.verified[owner], nil
}

type fakeDirectory struct {
	users map[ledger.OwnerID]*wallet.UserRecord
}

func (f *fakeDirectory) FindByEmail(_ context.Context, email string) (ledger.OwnerID, error) {
	for id, u := range f.users {
		if u.Email == email {
			return id, nil
		}
	}
	return "", wallet.ErrUserNotFound
}

func (f *fakeDirectory) FindByID(_ context.Context, owner ledger.OwnerID) (*wallet.UserRecord, error) {
	u, ok := f.users[owner]
	if !ok {
		return nil, wallet.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeDirectory) UpdateLimits(_ context.Context, owner ledger.OwnerID, limits ledger.Limits) error {
	u, ok := f.users[owner]
	if !ok {
		return wallet.ErrUserNotFound
	}
	u.TransferLimits = limits
	return nil
}

type fakeGateway struct {
	initiated     int
	confirmations map[string]*wallet.DepositConfirmation
	disbursed     []string
	failDisburse  bool
}

func (f *fakeGateway) InitiateDeposit(_ context.Context, owner ledger.OwnerID, amount ledger.Money) (string, error) {
	f.initiated++
	ref := fmt.Sprintf("DEP_%d_gwinit", f.initiated)
	if f.confirmations == nil {
		f.confirmations = make(map[string]*wallet.DepositConfirmation)
	}
	f.confirmations[ref] = &wallet.DepositConfirmation{Owner: owner, Amount: amount}
	return ref, nil
}

func (f *fakeGateway) ConfirmDeposit(_ context.Context, reference string) (*wallet.DepositConfirmation, error) {
	conf, ok := f.confirmations[reference]
	if !ok {
		return nil, errors.New("unknown reference")
	}
	return conf, nil
}

func (f *fakeGateway) Disburse(_ context.Context, _ ledger.OwnerID, _ ledger.Money, destination string) (string, error) {
	if f.failDisburse {
		return "", errors.New("rail unavailable")
	}
	f.disbursed = append(f.disbursed, destination)
	return fmt.Sprintf("WDL_%d_gwdisb", len(f.disbursed)), nil
}

// =============================================================================
// FIXTURE
// =============================================================================

type fixture struct {
	store   *store.Memory
	engine  *ledger.Engine
	auth    *fakeAuth
	dir     *fakeDirectory
	gateway *fakeGateway

	transfers *wallet.TransferService
	funding   *wallet.FundingService
	bills     *wallet.BillService
	qr        *wallet.QRService
	merchants *wallet.MerchantService
}

// newFixture wires all services over the memory store with two verified
// users, alice and bob, both on default limits.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	mem := store.NewMemory()
	engine := ledger.NewEngine(mem)
	refs := ledger.NewReferenceGenerator()
	auth := &fakeAuth{verified: map[ledger.OwnerID]bool{"alice": true, "bob": true}}
	dir := &fakeDirectory{users: map[ledger.OwnerID]*wallet.UserRecord{
		"alice": {ID: "alice", Email: "alice@example.com", TransferLimits: ledger.DefaultLimits()},
		"bob":   {ID: "bob", Email: "bob@example.com", TransferLimits: ledger.DefaultLimits()},
	}}
	gateway := &fakeGateway{}
	resolver := wallet.JSONQRResolver{}

	return &fixture{
		store:   mem,
		engine:  engine,
		auth:    auth,
		dir:     dir,
		gateway: gateway,
		transfers: &wallet.TransferService{
			Engine: engine, Store: mem, Auth: auth, Dir: dir,
			Fees: ledger.DefaultFeeSchedule(), Refs: refs,
		},
		funding: &wallet.FundingService{
			Engine: engine, Store: mem, Auth: auth, Gateway: gateway,
		},
		bills: &wallet.BillService{
			Engine: engine, Store: mem, Auth: auth, Refs: refs,
		},
		qr: &wallet.QRService{
			Engine: engine, Store: mem, Auth: auth, Resolver: resolver, Refs: refs,
		},
		merchants: &wallet.MerchantService{
			Engine: engine, Store: mem, Auth: auth, Resolver: resolver, Refs: refs,
		},
	}
}

func (f *fixture) fund(t *testing.T, owner ledger.OwnerID, balance string) {
	t.Helper()
	_, err := f.engine.ApplyDeposit(context.Background(), owner,
		money(t, balance), fmt.Sprintf("DEP_fund_%s_%s", owner, balance))
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T, owner ledger.OwnerID) ledger.Money {
	t.Helper()
	account, err := f.store.Account(context.Background(), owner)
	require.NoError(t, err)
	return account.Balance
}

func money(t *testing.T, s string) ledger.Money {
	t.Helper()
	m, err := ledger.ParseMoney(s)
	require.NoError(t, err)
	return m
}
