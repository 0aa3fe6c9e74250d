// Package eventBusTypes defines the types and interfaces used by the eventBus package.
package eventBusTypes

import (
	"context"
	"math/big"
	"sync"

	"github.com/Layr-Labs/offering-ledger/pkg/offering/types"
)

// EventName identifies the kind of ledger event.
type EventName string

func (en *EventName) String() string {
	return string(*en)
}

var (
	Event_PoolSet         EventName = "pool_set"
	Event_Deposit         EventName = "deposit"
	Event_Harvest         EventName = "harvest"
	Event_TokensReleased  EventName = "tokens_released"
	Event_PrepPeriodSet   EventName = "prep_period_set"
	Event_VaultSet        EventName = "vault_set"
	Event_RaisedWithdrawn EventName = "raised_withdrawn"
	Event_FinalWithdraw   EventName = "final_withdraw"
)

// Event is a message published to the event bus. Id is unique per event.
type Event struct {
	Id        string
	Name      EventName
	Timestamp types.Timestamp
	Data      any
}

type ConsumerId string

// Consumer receives events on Channel until it is unsubscribed.
type Consumer struct {
	Id      ConsumerId
	Context context.Context
	Channel chan *Event
}

// ConsumerList is a thread-safe collection of consumers.
type ConsumerList struct {
	mu        sync.Mutex
	consumers []*Consumer
}

func NewConsumerList() *ConsumerList {
	return &ConsumerList{
		consumers: make([]*Consumer, 0),
	}
}

func (cl *ConsumerList) Add(consumer *Consumer) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.consumers = append(cl.consumers, consumer)
}

// Remove removes the consumer with a matching Id.
func (cl *ConsumerList) Remove(consumer *Consumer) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	for i, c := range cl.consumers {
		if c.Id == consumer.Id {
			cl.consumers = append(cl.consumers[:i], cl.consumers[i+1:]...)
			break
		}
	}
}

// GetAll returns a copy of the current consumers.
func (cl *ConsumerList) GetAll() []*Consumer {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	out := make([]*Consumer, len(cl.consumers))
	copy(out, cl.consumers)
	return out
}

type IEventBus interface {
	Subscribe(consumer *Consumer)
	Unsubscribe(consumer *Consumer)
	Publish(event *Event)
}

type PoolSetData struct {
	PoolId         types.PoolId
	OfferingAmount *big.Int
	RaisingAmount  *big.Int
	PerUserLimit   *big.Int
	HasTax         bool
}

type DepositData struct {
	User   types.Identity
	PoolId types.PoolId
	Amount *big.Int
}

type HarvestData struct {
	User           types.Identity
	PoolId         types.PoolId
	OfferingAmount *big.Int
	RefundAmount   *big.Int
	TaxAmount      *big.Int
}

type TokensReleasedData struct {
	ReleasedPercent      uint64
	NextReleaseTimestamp types.Timestamp
}

type PrepPeriodSetData struct {
	PreparationSeconds uint64
}

type VaultSetData struct {
	HasVault        bool
	MinVaultBalance *big.Int
}

type WithdrawData struct {
	ContributionAmount *big.Int
	OfferingAmount     *big.Int
}
