package service

import (
	"context"
	"sync"

	"github.com/fjod/go_pos/internal/domain"
)

// mockSalesAPI records every CreateSale call. When block is set, calls wait
// on it before answering.
type mockSalesAPI struct {
	m        sync.RWMutex
	requests []domain.SaleRequest
	sale     *domain.Sale
	err      error
	block    chan struct{}
	started  chan struct{}
}

func (m *mockSalesAPI) CreateSale(_ context.Context, req domain.SaleRequest) (*domain.Sale, error) {
	m.m.Lock()
	m.requests = append(m.requests, req)
	block, started := m.block, m.started
	m.m.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		<-block
	}

	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.sale, nil
}

func (m *mockSalesAPI) calls() []domain.SaleRequest {
	m.m.RLock()
	defer m.m.RUnlock()
	return append([]domain.SaleRequest(nil), m.requests...)
}

type mockNotifier struct {
	m        sync.RWMutex
	receipts []domain.Receipt
	err      error
}

func (m *mockNotifier) SaleCompleted(_ context.Context, r domain.Receipt) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.receipts = append(m.receipts, r)
	return m.err
}

func (m *mockNotifier) got() []domain.Receipt {
	m.m.RLock()
	defer m.m.RUnlock()
	return append([]domain.Receipt(nil), m.receipts...)
}
