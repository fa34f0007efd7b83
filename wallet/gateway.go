/*
gateway.go - In-process payment gateway

PURPOSE:
  A sandbox PaymentGateway for local runs and demos. Deposits are
  confirmed as soon as their reference is presented; disbursements always
  succeed. Production deployments substitute a real rail behind the same
  interface.
*/
package wallet

import (
	"context"
	"errors"
	"sync"

	"github.com/kobo/wallet-engine/ledger"
)

// SimulatedGateway is an in-memory PaymentGateway. Safe for concurrent use.
type SimulatedGateway struct {
	Refs *ledger.ReferenceGenerator

	mu      sync.Mutex
	pending map[string]DepositConfirmation
}

func NewSimulatedGateway() *SimulatedGateway {
	return &SimulatedGateway{
		Refs:    ledger.NewReferenceGenerator(),
		pending: make(map[string]DepositConfirmation),
	}
}

func (g *SimulatedGateway) InitiateDeposit(_ context.Context, owner ledger.OwnerID, amount ledger.Money) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	reference := g.Refs.Next(ledger.RefDeposit)
	g.pending[reference] = DepositConfirmation{Owner: owner, Amount: amount}
	return reference, nil
}

func (g *SimulatedGateway) ConfirmDeposit(_ context.Context, reference string) (*DepositConfirmation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	conf, ok := g.pending[reference]
	if !ok {
		return nil, errors.New("unknown transaction reference")
	}
	// Left in the map: redeliveries of a confirmed reference still verify.
	return &conf, nil
}

func (g *SimulatedGateway) Disburse(_ context.Context, _ ledger.OwnerID, _ ledger.Money, _ string) (string, error) {
	return g.Refs.Next(ledger.RefWithdrawal), nil
}
