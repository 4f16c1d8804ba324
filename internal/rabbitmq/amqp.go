package rabbitmq

import amqp "github.com/rabbitmq/amqp091-go"

// amqpConnection — обёртка *amqp.Connection под контракт connection.
// *amqp.Channel удовлетворяет контракту channel напрямую.
type amqpConnection struct{ conn *amqp.Connection }

// amqpDial — боевая dialFunc.
func amqpDial(url string) (connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return &amqpConnection{conn: conn}, nil
}

func (c *amqpConnection) Channel() (channel, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func (c *amqpConnection) Close() error { return c.conn.Close() }
