package rabbitmq

// QueueConfig описывает очередь и ключ маршрутизации для привязки.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// RoutingKeyEvent единый ключ маршрутизации событий движка.
const RoutingKeyEvent = "event"

// GetEngineQueues возвращает очереди, которые слушает рекордер событий.
func GetEngineQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "engine-events.recorded", RoutingKey: RoutingKeyEvent},
		// при необходимости дополнительные очереди для других воркеров
	}
}
