// Package docs registers the OpenAPI description served at /api-docs.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "bearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/auth/register": {"post": {"tags": ["Auth"], "summary": "Register a new user", "responses": {"201": {"description": "Created"}, "400": {"description": "Validation failed"}, "409": {"description": "Email already registered"}}}},
        "/auth/login": {"post": {"tags": ["Auth"], "summary": "Log in", "responses": {"200": {"description": "OK"}, "401": {"description": "Invalid credentials"}, "403": {"description": "Account blocked"}}}},
        "/auth/refresh": {"post": {"tags": ["Auth"], "summary": "Exchange a refresh token", "responses": {"200": {"description": "OK"}, "401": {"description": "Invalid token"}}}},
        "/auth/me": {"get": {"tags": ["Auth"], "security": [{"bearerAuth": []}], "summary": "Current user", "responses": {"200": {"description": "OK"}}}},
        "/auth/forgot-password": {"post": {"tags": ["Auth"], "summary": "Request a password reset", "responses": {"200": {"description": "OK"}}}},
        "/auth/reset-password": {"post": {"tags": ["Auth"], "summary": "Reset password with a token", "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid or expired token"}}}},
        "/events": {
            "get": {"tags": ["Events"], "summary": "List approved events", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Events"], "security": [{"bearerAuth": []}], "summary": "Create an event pending approval", "responses": {"201": {"description": "Created"}}}
        },
        "/events/stats": {"get": {"tags": ["Events"], "summary": "Public statistics", "responses": {"200": {"description": "OK"}}}},
        "/events/{id}": {
            "get": {"tags": ["Events"], "summary": "Event detail", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "403": {"description": "Not visible"}, "404": {"description": "Not found"}}},
            "put": {"tags": ["Events"], "security": [{"bearerAuth": []}], "summary": "Update an event", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["Events"], "security": [{"bearerAuth": []}], "summary": "Delete an event", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/events/{id}/join": {"post": {"tags": ["Events"], "security": [{"bearerAuth": []}], "summary": "Join an approved event", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "400": {"description": "Full, started or already joined"}}}},
        "/events/{id}/leave": {"post": {"tags": ["Events"], "security": [{"bearerAuth": []}], "summary": "Leave an event", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}},
        "/events/{id}/report": {"post": {"tags": ["Events"], "security": [{"bearerAuth": []}], "summary": "Report an event", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "400": {"description": "Already reported"}}}},
        "/admin/dashboard": {"get": {"tags": ["Admin"], "security": [{"bearerAuth": []}], "summary": "Dashboard counters and charts", "responses": {"200": {"description": "OK"}}}},
        "/admin/events/{id}/approve": {"put": {"tags": ["Admin"], "security": [{"bearerAuth": []}], "summary": "Approve a pending event", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "400": {"description": "Already processed"}}}},
        "/admin/events/{id}/reject": {"put": {"tags": ["Admin"], "security": [{"bearerAuth": []}], "summary": "Reject a pending event", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "400": {"description": "Already processed"}}}},
        "/admin/reports": {"get": {"tags": ["Admin"], "security": [{"bearerAuth": []}], "summary": "List reports", "responses": {"200": {"description": "OK"}}}},
        "/admin/reports/{id}/review": {"post": {"tags": ["Admin"], "security": [{"bearerAuth": []}], "summary": "Review a report", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}},
        "/admin/users": {"get": {"tags": ["Admin"], "security": [{"bearerAuth": []}], "summary": "List users", "responses": {"200": {"description": "OK"}}}},
        "/chat/events/{eventId}/messages": {
            "get": {"tags": ["Chat"], "security": [{"bearerAuth": []}], "summary": "Message history", "parameters": [{"name": "eventId", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Chat"], "security": [{"bearerAuth": []}], "summary": "Send a message", "parameters": [{"name": "eventId", "in": "path", "required": true, "type": "string"}], "responses": {"201": {"description": "Created"}}}
        },
        "/chat/messages/{messageId}": {
            "put": {"tags": ["Chat"], "security": [{"bearerAuth": []}], "summary": "Edit a message within 15 minutes", "parameters": [{"name": "messageId", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["Chat"], "security": [{"bearerAuth": []}], "summary": "Soft delete a message", "parameters": [{"name": "messageId", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/notifications": {"get": {"tags": ["Notifications"], "security": [{"bearerAuth": []}], "summary": "List notifications", "responses": {"200": {"description": "OK"}}}},
        "/notifications/unread-count": {"get": {"tags": ["Notifications"], "security": [{"bearerAuth": []}], "summary": "Unread count", "responses": {"200": {"description": "OK"}}}},
        "/socket/stats": {"get": {"tags": ["Socket"], "security": [{"bearerAuth": []}], "summary": "Realtime connection statistics", "responses": {"200": {"description": "OK"}}}},
        "/uploads": {"post": {"tags": ["Uploads"], "security": [{"bearerAuth": []}], "summary": "Upload an image", "consumes": ["multipart/form-data"], "responses": {"201": {"description": "Created"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "EventHub API",
	Description:      "Event management API with moderation, chat and realtime notifications.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
