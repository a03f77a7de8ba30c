package partnerapi

import (
	"context"
	"fmt"
	"net/http"
)

// SendChatMessage posts a message to a property's chat thread.
//
// The vendor documents chat as mocked: the endpoint accepts and echoes
// messages but does not deliver them to anyone.
func (c *Client) SendChatMessage(ctx context.Context, propertyID int64, req ChatMessageRequest) (*ChatMessage, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	var msg ChatMessage
	path := fmt.Sprintf("/properties/%d/chat/", propertyID)
	if err := c.doJSON(ctx, "send_chat_message", http.MethodPost, path, req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListChatMessages returns a page of a property's chat thread.
func (c *Client) ListChatMessages(ctx context.Context, propertyID int64, opts ListOptions) (*Page[ChatMessage], error) {
	var page Page[ChatMessage]
	path := fmt.Sprintf("/properties/%d/chat/", propertyID)
	if err := c.get(ctx, "list_chat_messages", path, opts.query(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}
