// Package docs registers the OpenAPI description served under /docs/.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/v1/conversations": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Conversations"],
                "summary": "List conversations",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/utils.Payload"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Conversations"],
                "summary": "Save a conversation",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/utils.Payload"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/utils.Payload"}}
                }
            }
        },
        "/api/v1/conversations/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Conversations"],
                "summary": "Load a conversation",
                "parameters": [
                    {"type": "string", "description": "Conversation ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/utils.Payload"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/utils.Payload"}},
                    "409": {"description": "Encryption key has changed", "schema": {"$ref": "#/definitions/utils.Payload"}},
                    "500": {"description": "Failed to load conversation", "schema": {"$ref": "#/definitions/utils.Payload"}}
                }
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Conversations"],
                "summary": "Replace a conversation's messages",
                "parameters": [
                    {"type": "string", "description": "Conversation ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/utils.Payload"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/utils.Payload"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["Conversations"],
                "summary": "Delete a conversation",
                "parameters": [
                    {"type": "string", "description": "Conversation ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/utils.Payload"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/utils.Payload"}}
                }
            }
        },
        "/api/v1/conversations/{id}/backup": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Conversations"],
                "summary": "Download link for a backup",
                "parameters": [
                    {"type": "string", "description": "Conversation ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/utils.Payload"}},
                    "404": {"description": "No backup found", "schema": {"$ref": "#/definitions/utils.Payload"}},
                    "503": {"description": "Backups not configured", "schema": {"$ref": "#/definitions/utils.Payload"}}
                }
            },
            "post": {
                "produces": ["application/json"],
                "tags": ["Conversations"],
                "summary": "Back up a conversation",
                "parameters": [
                    {"type": "string", "description": "Conversation ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/utils.Payload"}},
                    "503": {"description": "Backups not configured", "schema": {"$ref": "#/definitions/utils.Payload"}}
                }
            }
        },
        "/api/v1/profile": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Profile"],
                "summary": "Current user's profile",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/utils.Payload"}}
                }
            }
        }
    },
    "definitions": {
        "utils.Payload": {
            "type": "object",
            "properties": {
                "data": {},
                "message": {"type": "string"},
                "success": {"type": "boolean"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "chatvault API",
	Description:      "Encrypted conversation storage.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
