// Package docs is generated by swaggo/swag; regenerate with `swag init -g cmd/server/main.go`.
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
        "/auth/register": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Register a new user",
                "parameters": [
                    {"description": "Account", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handlers.AuthResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/middleware.APIError"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Log in",
                "parameters": [
                    {"description": "Credentials", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.AuthResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/middleware.APIError"}}
                }
            }
        },
        "/user/me": {
            "get": {
                "security": [{"Bearer": []}],
                "produces": ["application/json"],
                "tags": ["user"],
                "summary": "Current user",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.User"}}}
            }
        },
        "/settings": {
            "get": {
                "security": [{"Bearer": []}],
                "produces": ["application/json"],
                "tags": ["user"],
                "summary": "Get settings",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.SettingsResponse"}}}
            },
            "put": {
                "security": [{"Bearer": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["user"],
                "summary": "Update settings",
                "parameters": [
                    {"description": "Changes", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.UpdateSettingsRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.SettingsResponse"}}}
            }
        },
        "/usage": {
            "get": {
                "security": [{"Bearer": []}],
                "produces": ["application/json"],
                "tags": ["user"],
                "summary": "Monthly budget status",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/economics.BudgetStatus"}}}
            }
        },
        "/decks": {
            "get": {
                "security": [{"Bearer": []}],
                "produces": ["application/json"],
                "tags": ["decks"],
                "summary": "List decks",
                "parameters": [
                    {"type": "integer", "description": "Page size", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "Offset", "name": "offset", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/store.DeckSummary"}}}}
            }
        },
        "/decks/generate": {
            "post": {
                "security": [{"Bearer": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["generation"],
                "summary": "Generate a deck synchronously",
                "parameters": [
                    {"description": "Generation request", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.GenerationRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handlers.GenerateResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/middleware.APIError"}},
                    "402": {"description": "Payment Required", "schema": {"$ref": "#/definitions/middleware.APIError"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/middleware.APIError"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/middleware.APIError"}}
                }
            }
        },
        "/decks/{id}": {
            "get": {
                "security": [{"Bearer": []}],
                "produces": ["application/json"],
                "tags": ["decks"],
                "summary": "Get deck",
                "parameters": [{"type": "string", "description": "Deck ID", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Deck"}}}
            },
            "put": {
                "security": [{"Bearer": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["decks"],
                "summary": "Update deck",
                "parameters": [
                    {"type": "string", "description": "Deck ID", "name": "id", "in": "path", "required": true},
                    {"description": "Changes", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.UpdateDeckRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Deck"}}}
            },
            "delete": {
                "security": [{"Bearer": []}],
                "tags": ["decks"],
                "summary": "Delete deck",
                "parameters": [{"type": "string", "description": "Deck ID", "name": "id", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/brand/extract": {
            "post": {
                "security": [{"Bearer": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["brand"],
                "summary": "Extract brand assets from a website",
                "parameters": [
                    {"description": "Website", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.ExtractBrandRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.BrandAssets"}}}
            }
        },
        "/generations": {
            "post": {
                "security": [{"Bearer": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["generation"],
                "summary": "Start an asynchronous generation",
                "parameters": [
                    {"description": "Generation request", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.GenerationRequest"}}
                ],
                "responses": {"202": {"description": "Accepted", "schema": {"$ref": "#/definitions/handlers.StartGenerationResponse"}}}
            }
        },
        "/generations/{id}": {
            "get": {
                "security": [{"Bearer": []}],
                "produces": ["application/json"],
                "tags": ["generation"],
                "summary": "Generation status",
                "parameters": [{"type": "string", "description": "Job ID", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.GenerationJob"}}}
            }
        },
        "/generations/{id}/cancel": {
            "post": {
                "security": [{"Bearer": []}],
                "produces": ["application/json"],
                "tags": ["generation"],
                "summary": "Cancel a generation",
                "parameters": [{"type": "string", "description": "Job ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.StartGenerationResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/middleware.APIError"}}
                }
            }
        }
    },
    "definitions": {
        "middleware.APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "details": {"type": "string"},
                "retry_after_ms": {"type": "integer"}
            }
        },
        "handlers.RegisterRequest": {
            "type": "object",
            "required": ["email", "name", "password"],
            "properties": {
                "email": {"type": "string"},
                "name": {"type": "string"},
                "password": {"type": "string", "minLength": 8}
            }
        },
        "handlers.LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "handlers.AuthResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "expires_at": {"type": "string"},
                "user": {"$ref": "#/definitions/models.User"}
            }
        },
        "handlers.SettingsResponse": {
            "type": "object",
            "properties": {
                "text_provider": {"type": "string"},
                "text_api_key": {"type": "string"},
                "image_api_key": {"type": "string"},
                "icon_api_key": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "handlers.UpdateSettingsRequest": {
            "type": "object",
            "properties": {
                "text_provider": {"type": "string", "enum": ["anthropic", "openai"]},
                "text_api_key": {"type": "string"},
                "image_api_key": {"type": "string"},
                "icon_api_key": {"type": "string"}
            }
        },
        "handlers.UpdateDeckRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"},
                "slides": {"type": "array", "items": {"type": "object"}},
                "theme": {"type": "object"}
            }
        },
        "handlers.ExtractBrandRequest": {
            "type": "object",
            "required": ["url"],
            "properties": {"url": {"type": "string"}}
        },
        "handlers.GenerateResponse": {
            "type": "object",
            "properties": {
                "deck": {"$ref": "#/definitions/models.Deck"},
                "report": {"type": "object"}
            }
        },
        "handlers.StartGenerationResponse": {
            "type": "object",
            "properties": {
                "job_id": {"type": "string"},
                "status": {"type": "string"},
                "runner": {"type": "string"}
            }
        },
        "economics.BudgetStatus": {
            "type": "object",
            "properties": {
                "allowed": {"type": "boolean"},
                "spent": {"type": "number"},
                "remaining_budget": {"type": "number"},
                "reason": {"type": "string"}
            }
        },
        "store.DeckSummary": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "description": {"type": "string"},
                "slide_count": {"type": "integer"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "models.User": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "email": {"type": "string"},
                "name": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "models.BrandAssets": {
            "type": "object",
            "properties": {
                "colors": {"type": "object"},
                "logo": {"type": "string"},
                "images": {"type": "array", "items": {"type": "string"}},
                "companyName": {"type": "string"}
            }
        },
        "models.GenerationRequest": {
            "type": "object",
            "properties": {
                "content": {"type": "string"},
                "urls": {"type": "array", "items": {"type": "string"}},
                "files": {"type": "array", "items": {"type": "object"}},
                "instructions": {"type": "string"},
                "brandUrl": {"type": "string"},
                "multiPhase": {"type": "boolean"},
                "buildOnly": {"type": "boolean"},
                "fillMissingGraphics": {"type": "boolean"}
            }
        },
        "models.GenerationJob": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "user_id": {"type": "string"},
                "status": {"type": "string", "enum": ["queued", "running", "completed", "failed", "cancelled"]},
                "stage": {"type": "string"},
                "progress": {"type": "number"},
                "deck_id": {"type": "string"},
                "error": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "models.Deck": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "user_id": {"type": "string"},
                "name": {"type": "string"},
                "description": {"type": "string"},
                "slides": {"type": "array", "items": {"type": "object"}},
                "theme": {"type": "object"},
                "logo": {"type": "string"},
                "created_at": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "Bearer": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http"},
	Title:            "DeckForge API",
	Description:      "Generates presentation decks from content, references and brand assets.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
