// Package engine реализует ядро движка подписок на лотерейные билеты:
// реестр подписчиков, политику выплат, слияние подписок при апгрейде,
// расчёт при расторжении и батч-планировщик с глобальным счётчиком дней.
package engine

import "github.com/magabrotheeeer/ticket-subscription-engine/internal/models"

// Registry хранит подписки по аккаунтам и упорядоченный список аккаунтов,
// когда-либо имевших активную подписку. Порядок определяет разбиение на батчи.
// Деактивированная подписка остаётся в реестре до ближайшего уплотнения.
type Registry struct {
	subs  map[string]models.Subscription
	ids   []string
	index map[string]int
}

// NewRegistry возвращает пустой реестр подписчиков.
func NewRegistry() *Registry {
	return &Registry{
		subs:  make(map[string]models.Subscription),
		index: make(map[string]int),
	}
}

// Get возвращает подписку аккаунта, если запись существует.
func (r *Registry) Get(account string) (models.Subscription, bool) {
	sub, ok := r.subs[account]
	return sub, ok
}

// Upsert сохраняет подписку аккаунта, не меняя его позицию в реестре.
func (r *Registry) Upsert(account string, sub models.Subscription) {
	r.subs[account] = sub
}

// IsSubscriber сообщает, числится ли аккаунт в реестре. O(1) по индексу.
func (r *Registry) IsSubscriber(account string) bool {
	_, ok := r.index[account]
	return ok
}

// Append добавляет аккаунт в конец реестра. Повторное добавление — no-op.
func (r *Registry) Append(account string) {
	if _, ok := r.index[account]; ok {
		return
	}
	r.index[account] = len(r.ids)
	r.ids = append(r.ids, account)
}

// Len возвращает число аккаунтов в реестре, включая деактивированные.
func (r *Registry) Len() int {
	return len(r.ids)
}

// Accounts возвращает копию списка аккаунтов в порядке реестра.
func (r *Registry) Accounts() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// Slice возвращает аккаунты батча с индексом batchIndex при размере батча
// batchSize. Пустой срез, если индекс вне реестра.
func (r *Registry) Slice(batchIndex, batchSize uint64) []string {
	start := batchIndex * batchSize
	if start >= uint64(len(r.ids)) {
		return nil
	}
	end := start + batchSize
	if end > uint64(len(r.ids)) {
		end = uint64(len(r.ids))
	}
	return r.ids[start:end]
}

// NumberOfBatches возвращает ceil(len/batchSize) для текущего реестра.
func (r *Registry) NumberOfBatches(batchSize uint64) uint64 {
	if batchSize == 0 {
		return 0
	}
	return (uint64(len(r.ids)) + batchSize - 1) / batchSize
}

// Compact удаляет из реестра все неактивные записи стратегией
// "поменять с последним и усечь", поэтому порядок аккаунтов не сохраняется.
// Безопасно вызывать только между батч-днями. Возвращает удалённые аккаунты.
func (r *Registry) Compact() []string {
	var removed []string
	for i := 0; i < len(r.ids); {
		account := r.ids[i]
		if r.subs[account].IsActive {
			i++
			continue
		}
		last := len(r.ids) - 1
		r.ids[i] = r.ids[last]
		r.index[r.ids[i]] = i
		r.ids = r.ids[:last]
		delete(r.index, account)
		delete(r.subs, account)
		removed = append(removed, account)
	}
	return removed
}

// Restore наполняет пустой реестр сохранённым состоянием, соблюдая порядок.
func (r *Registry) Restore(accounts []string, subs map[string]models.Subscription) {
	for _, account := range accounts {
		r.Append(account)
		if sub, ok := subs[account]; ok {
			r.subs[account] = sub
		}
	}
}
