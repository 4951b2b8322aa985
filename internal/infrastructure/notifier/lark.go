package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"
)

// messageCreator is satisfied by the SDK's Im.Message service
type messageCreator interface {
	Create(ctx context.Context, req *larkim.CreateMessageReq, options ...larkcore.RequestOptionFunc) (*larkim.CreateMessageResp, error)
}

// LarkNotifier sends notifications as Lark IM text messages addressed by email
type LarkNotifier struct {
	cfg      Config
	messages messageCreator
	logger   *zap.Logger
}

// NewLarkNotifier creates a new Lark notifier
func NewLarkNotifier(cfg Config, logger *zap.Logger) *LarkNotifier {
	n := &LarkNotifier{cfg: cfg, logger: logger}
	if cfg.LarkAppID != "" && cfg.LarkAppSecret != "" {
		client := lark.NewClient(cfg.LarkAppID, cfg.LarkAppSecret,
			lark.WithLogLevel(larkcore.LogLevelInfo),
			lark.WithEnableTokenCache(true),
		)
		n.messages = client.Im.Message
	}
	return n
}

// Send delivers one message to the Lark user registered with the address
func (n *LarkNotifier) Send(ctx context.Context, to, subject, body string) error {
	if err := missing(map[string]string{
		"app_id":     n.cfg.LarkAppID,
		"app_secret": n.cfg.LarkAppSecret,
	}); err != nil {
		return err
	}
	if n.messages == nil {
		return fmt.Errorf("%w: lark client not initialized", ErrConfiguration)
	}

	msgBody, err := textMessageBody(to, subject, body)
	if err != nil {
		return err
	}

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType("email").
		Body(msgBody).
		Build()

	resp, err := n.messages.Create(ctx, req)
	if err != nil {
		n.logger.Error("Failed to send Lark message", zap.String("to", to), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	if !resp.Success() {
		n.logger.Error("Lark API returned failure",
			zap.String("to", to),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("%w: code=%d, msg=%s", ErrDelivery, resp.Code, resp.Msg)
	}

	return nil
}

// textMessageBody builds a text message for the user registered with the address
func textMessageBody(to, subject, body string) (*larkim.CreateMessageReqBody, error) {
	content, err := json.Marshal(map[string]string{"text": subject + "\n\n" + body})
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}

	return larkim.NewCreateMessageReqBodyBuilder().
		ReceiveId(to).
		MsgType("text").
		Content(string(content)).
		Build(), nil
}
