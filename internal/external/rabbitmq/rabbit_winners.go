package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	model "github.com/glkeru/loyalty/marketplace/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

type RabbitNotifier struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

const queue = "winners"

func NewRabbitNotifier() (rabbit *RabbitNotifier, err error) {
	// config
	rabbiturl := os.Getenv("RABBIT_URL")
	if rabbiturl == "" {
		return nil, fmt.Errorf("env RABBIT_URL is not set")
	}
	rabbitport := os.Getenv("RABBIT_PORT")
	if rabbitport == "" {
		return nil, fmt.Errorf("env RABBIT_PORT is not set")
	}
	rabbituser := os.Getenv("RABBIT_USER")
	if rabbituser == "" {
		return nil, fmt.Errorf("env RABBIT_USER is not set")
	}
	rabbitpass := os.Getenv("RABBIT_PASSWORD")
	if rabbitpass == "" {
		return nil, fmt.Errorf("env RABBIT_PASSWORD is not set")
	}

	rabbitconn := "amqp://" + rabbituser + ":" + rabbitpass + "@" + rabbiturl + ":" + rabbitport + "/marketplace"
	conn, err := amqp.Dial(rabbitconn)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	_, err = ch.QueueDeclare(
		queue, // name
		false, // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &RabbitNotifier{conn, ch}, nil
}

func (r *RabbitNotifier) Close() {
	r.ch.Close()
	r.conn.Close()
}

type WinnerMessage struct {
	EventId   string `json:"eventId"`
	EventName string `json:"eventName"`
	UserId    string `json:"userId"`
	ItemName  string `json:"itemName"`
	TierName  string `json:"tierName"`
	AwardId   string `json:"awardId"`
}

// уведомление победителя розыгрыша
func (r *RabbitNotifier) NotifyWinner(ctx context.Context, event model.MysteryBoxEvent, winner model.EventWinner) error {
	st := &WinnerMessage{
		EventId:   event.ID.String(),
		EventName: event.Name,
		UserId:    winner.UserID,
		ItemName:  winner.ItemName,
		TierName:  winner.TierName,
		AwardId:   winner.AwardID.String(),
	}
	msg, err := json.Marshal(st)
	if err != nil {
		return err
	}

	err = r.ch.PublishWithContext(ctx,
		"",    // exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        []byte(msg),
		})
	if err != nil {
		return err
	}
	return nil
}
