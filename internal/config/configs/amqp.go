package configs

// AMQP configures publishing of campaign events to RabbitMQ. An empty URL
// disables publishing.
type AMQP struct {
	URL      string `env:"URL"`
	Exchange string `env:"EXCHANGE" envDefault:"campaign_events"`
}
