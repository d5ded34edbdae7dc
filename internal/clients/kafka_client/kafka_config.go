package kafka_client

type KafkaConfig struct {
	Broker   string
	Topic    string
	ClientID string
}

func (c KafkaConfig) topic() string {
	if c.Topic == "" {
		return KAFKA_TOPIC_SENTIMENT_ANALYSES
	}
	return c.Topic
}
