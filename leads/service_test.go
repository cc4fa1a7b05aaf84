package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lucaslcw/order-pipeline/common/api"
)

type fakeLeadFinder struct {
	lead     *api.Lead
	created  bool
	err      error
	lastSeen api.CustomerData
}

func (f *fakeLeadFinder) FindOrCreate(_ context.Context, customer api.CustomerData) (*api.Lead, bool, error) {
	f.lastSeen = customer
	if f.err != nil {
		return nil, false, f.err
	}
	return f.lead, f.created, nil
}

func initializeEvent() *api.InitializeOrder {
	return &api.InitializeOrder{
		OrderID: "ord-1",
		CustomerData: api.CustomerData{
			CPF:   "123.456.789-01",
			Email: " Ana.Silva@Example.COM ",
			Name:  "Ana Silva",
		},
	}
}

func TestProcessRecordNormalizesIdentity(t *testing.T) {
	finder := &fakeLeadFinder{lead: &api.Lead{ID: "lead-1"}, created: true}
	svc := NewService(finder, zap.NewNop())

	created, err := svc.ProcessRecord(context.Background(), initializeEvent())
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "12345678901", finder.lastSeen.CPF)
	assert.Equal(t, "ana.silva@example.com", finder.lastSeen.Email)
	assert.Equal(t, "Ana Silva", finder.lastSeen.Name)
}

func TestProcessRecordExistingLead(t *testing.T) {
	finder := &fakeLeadFinder{lead: &api.Lead{ID: "lead-1"}, created: false}
	svc := NewService(finder, zap.NewNop())

	created, err := svc.ProcessRecord(context.Background(), initializeEvent())
	require.NoError(t, err)
	assert.False(t, created)
}

func TestProcessRecordInvalidCPFIsFatal(t *testing.T) {
	svc := NewService(&fakeLeadFinder{}, zap.NewNop())

	msg := initializeEvent()
	msg.CustomerData.CPF = "123"

	_, err := svc.ProcessRecord(context.Background(), msg)
	require.Error(t, err)
	assert.True(t, api.IsValidation(err))
	assert.NotContains(t, err.Error(), "123")
}

func TestProcessRecordStoreErrorPropagates(t *testing.T) {
	storeErr := api.Transient(assert.AnError)
	svc := NewService(&fakeLeadFinder{err: storeErr}, zap.NewNop())

	_, err := svc.ProcessRecord(context.Background(), initializeEvent())
	assert.ErrorIs(t, err, storeErr)
	assert.True(t, api.IsTransient(err))
}
