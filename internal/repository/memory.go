package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/freightline/loadbook/internal/common"
	"github.com/freightline/loadbook/internal/entity"
)

// MemoryStore implements every repository interface in process memory.
// It backs STORE_DRIVER=memory for local development and the test suites;
// semantics mirror the Postgres driver, including field-scoped broker
// upserts and all-or-nothing load batches.
type MemoryStore struct {
	mu           sync.Mutex
	loads        map[string][]entity.Load // account -> canonical order
	brokers      map[string][]entity.Broker
	interactions map[string][]entity.BrokerInteraction
	tasks        map[string][]entity.BrokerTask
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		loads:        make(map[string][]entity.Load),
		brokers:      make(map[string][]entity.Broker),
		interactions: make(map[string][]entity.BrokerInteraction),
		tasks:        make(map[string][]entity.BrokerTask),
	}
}

// --- LoadRepository ---

func (m *MemoryStore) ListByAccount(_ context.Context, account string) ([]entity.Load, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entity.Load, len(m.loads[account]))
	copy(out, m.loads[account])
	return out, nil
}

func (m *MemoryStore) UpsertBatch(_ context.Context, account string, loads []entity.Load) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.loads[account]
	for _, l := range loads {
		replaced := false
		for i := range cur {
			if cur[i].LoadID != "" && cur[i].LoadID == l.LoadID {
				cur[i] = l
				replaced = true
				break
			}
		}
		if !replaced {
			cur = append(cur, l)
		}
	}
	m.loads[account] = cur
	return nil
}

func (m *MemoryStore) DeleteByAccount(_ context.Context, account string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.loads[account]))
	delete(m.loads, account)
	return n, nil
}

// --- BrokerRepository ---

func (m *MemoryStore) ListBrokersByAccount(_ context.Context, account string) ([]entity.Broker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entity.Broker, len(m.brokers[account]))
	copy(out, m.brokers[account])
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (m *MemoryStore) GetBrokerByID(_ context.Context, account string, id uuid.UUID) (*entity.Broker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.brokers[account] {
		if b.ID == id {
			cp := b
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *MemoryStore) UpsertBrokerAggregates(_ context.Context, b entity.Broker) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	list := m.brokers[b.AccountID]
	for i := range list {
		if strings.EqualFold(list[i].Email, b.Email) {
			if b.Name != "" {
				list[i].Name = b.Name
			}
			if b.Phone != "" {
				list[i].Phone = b.Phone
			}
			list[i].FirstLoadDate = b.FirstLoadDate
			list[i].LastLoadDate = b.LastLoadDate
			list[i].TotalLoads = b.TotalLoads
			list[i].TotalRevenue = b.TotalRevenue
			list[i].AvgRate = b.AvgRate
			list[i].AvgRPM = b.AvgRPM
			list[i].UpdatedAt = now
			return false, nil
		}
	}
	b.ID = uuid.New()
	b.Status = entity.BrokerProspect
	b.Notes = ""
	b.CreatedAt, b.UpdatedAt = now, now
	m.brokers[b.AccountID] = append(list, b)
	return true, nil
}

func (m *MemoryStore) UpdateBrokerUserFields(_ context.Context, account string, id uuid.UUID, fields BrokerUserFields) (*entity.Broker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.brokers[account]
	for i := range list {
		if list[i].ID == id {
			if fields.Status != nil {
				list[i].Status = *fields.Status
			}
			if fields.Notes != nil {
				list[i].Notes = *fields.Notes
			}
			if fields.Phone != nil {
				list[i].Phone = *fields.Phone
			}
			if fields.Name != nil {
				list[i].Name = *fields.Name
			}
			list[i].UpdatedAt = time.Now().UTC()
			cp := list[i]
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *MemoryStore) DeleteBrokersByAccount(_ context.Context, account string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.brokers[account]))
	delete(m.brokers, account)
	delete(m.interactions, account)
	delete(m.tasks, account)
	return n, nil
}

// --- InteractionRepository ---

func (m *MemoryStore) ListInteractionsByBroker(_ context.Context, account string, brokerID uuid.UUID) ([]entity.BrokerInteraction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.BrokerInteraction
	for _, it := range m.interactions[account] {
		if it.BrokerID == brokerID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	return out, nil
}

func (m *MemoryStore) CreateInteraction(_ context.Context, in entity.BrokerInteraction) (*entity.BrokerInteraction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in.ID = uuid.New()
	in.CreatedAt = time.Now().UTC()
	if in.OccurredAt.IsZero() {
		in.OccurredAt = in.CreatedAt
	}
	m.interactions[in.AccountID] = append(m.interactions[in.AccountID], in)
	return &in, nil
}

func (m *MemoryStore) DeleteInteraction(_ context.Context, account string, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.interactions[account]
	for i := range list {
		if list[i].ID == id {
			m.interactions[account] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return common.ErrNotFound
}

// --- TaskRepository ---

func (m *MemoryStore) ListTasksByAccount(_ context.Context, account string) ([]entity.BrokerTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entity.BrokerTask, len(m.tasks[account]))
	copy(out, m.tasks[account])
	return out, nil
}

func (m *MemoryStore) CreateTask(_ context.Context, t entity.BrokerTask) (*entity.BrokerTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = uuid.New()
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now
	if t.Priority == "" {
		t.Priority = "medium"
	}
	if t.Status == "" {
		t.Status = "pending"
	}
	m.tasks[t.AccountID] = append(m.tasks[t.AccountID], t)
	return &t, nil
}

func (m *MemoryStore) UpdateTask(_ context.Context, account string, id uuid.UUID, upd TaskUpdate) (*entity.BrokerTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.tasks[account]
	for i := range list {
		if list[i].ID == id {
			if upd.Title != nil {
				list[i].Title = *upd.Title
			}
			if upd.Priority != nil {
				list[i].Priority = *upd.Priority
			}
			if upd.DueDate != nil {
				list[i].DueDate = upd.DueDate
			}
			if upd.Status != nil {
				list[i].Status = *upd.Status
			}
			list[i].UpdatedAt = time.Now().UTC()
			cp := list[i]
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *MemoryStore) DeleteTask(_ context.Context, account string, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.tasks[account]
	for i := range list {
		if list[i].ID == id {
			m.tasks[account] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return common.ErrNotFound
}

// Adapter views so one MemoryStore satisfies each repository interface
// despite the method-name collisions across them.

type memoryBrokers struct{ *MemoryStore }

func (m memoryBrokers) ListByAccount(ctx context.Context, account string) ([]entity.Broker, error) {
	return m.ListBrokersByAccount(ctx, account)
}
func (m memoryBrokers) GetByID(ctx context.Context, account string, id uuid.UUID) (*entity.Broker, error) {
	return m.GetBrokerByID(ctx, account, id)
}
func (m memoryBrokers) UpsertAggregates(ctx context.Context, b entity.Broker) (bool, error) {
	return m.UpsertBrokerAggregates(ctx, b)
}
func (m memoryBrokers) UpdateUserFields(ctx context.Context, account string, id uuid.UUID, fields BrokerUserFields) (*entity.Broker, error) {
	return m.UpdateBrokerUserFields(ctx, account, id, fields)
}
func (m memoryBrokers) DeleteByAccount(ctx context.Context, account string) (int64, error) {
	return m.DeleteBrokersByAccount(ctx, account)
}

type memoryInteractions struct{ *MemoryStore }

func (m memoryInteractions) ListByBroker(ctx context.Context, account string, brokerID uuid.UUID) ([]entity.BrokerInteraction, error) {
	return m.ListInteractionsByBroker(ctx, account, brokerID)
}
func (m memoryInteractions) Create(ctx context.Context, in entity.BrokerInteraction) (*entity.BrokerInteraction, error) {
	return m.CreateInteraction(ctx, in)
}
func (m memoryInteractions) Delete(ctx context.Context, account string, id uuid.UUID) error {
	return m.DeleteInteraction(ctx, account, id)
}

type memoryTasks struct{ *MemoryStore }

func (m memoryTasks) ListByAccount(ctx context.Context, account string) ([]entity.BrokerTask, error) {
	return m.ListTasksByAccount(ctx, account)
}
func (m memoryTasks) Create(ctx context.Context, t entity.BrokerTask) (*entity.BrokerTask, error) {
	return m.CreateTask(ctx, t)
}
func (m memoryTasks) Update(ctx context.Context, account string, id uuid.UUID, upd TaskUpdate) (*entity.BrokerTask, error) {
	return m.UpdateTask(ctx, account, id, upd)
}
func (m memoryTasks) Delete(ctx context.Context, account string, id uuid.UUID) error {
	return m.DeleteTask(ctx, account, id)
}

// Loads returns the store as a LoadRepository.
func (m *MemoryStore) Loads() LoadRepository { return m }

// Brokers returns the store as a BrokerRepository.
func (m *MemoryStore) Brokers() BrokerRepository { return memoryBrokers{m} }

// Interactions returns the store as an InteractionRepository.
func (m *MemoryStore) Interactions() InteractionRepository { return memoryInteractions{m} }

// Tasks returns the store as a TaskRepository.
func (m *MemoryStore) Tasks() TaskRepository { return memoryTasks{m} }
