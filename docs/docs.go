// Package docs holds the OpenAPI description of the HTTP API.
// Regenerate with: swag init -g cmd/agency-connect/main.go
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
        "/health": {
            "get": {
                "description": "Returns the health status of the API",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.StatusResponse"}}
                }
            }
        },
        "/ready": {
            "get": {
                "description": "Pings the integration store and, when configured, Redis",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.ReadyResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/http.ReadyResponse"}}
                }
            }
        },
        "/version": {
            "get": {
                "description": "Returns the current API version",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Get API version",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.VersionResponse"}}
                }
            }
        },
        "/connect/{provider}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Creates a disconnected integration and redirects to the provider consent page",
                "produces": ["application/json"],
                "tags": ["OAuth"],
                "summary": "Connect a provider",
                "parameters": [
                    {"type": "string", "description": "Provider (slack, gmail, google_ads, meta_ads)", "name": "provider", "in": "path", "required": true}
                ],
                "responses": {
                    "302": {"description": "Found"},
                    "400": {"description": "Unknown provider", "schema": {"$ref": "#/definitions/driving.OAuthError"}},
                    "409": {"description": "Already connected", "schema": {"$ref": "#/definitions/driving.OAuthError"}},
                    "503": {"description": "Provider not configured", "schema": {"$ref": "#/definitions/driving.OAuthError"}}
                }
            }
        },
        "/connect/{provider}/reauthorize": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Issues a fresh consent redirect for an existing integration; tokens are replaced on callback",
                "produces": ["application/json"],
                "tags": ["OAuth"],
                "summary": "Re-authorize a provider",
                "parameters": [
                    {"type": "string", "description": "Provider", "name": "provider", "in": "path", "required": true}
                ],
                "responses": {
                    "302": {"description": "Found"},
                    "404": {"description": "No integration for provider", "schema": {"$ref": "#/definitions/driving.OAuthError"}}
                }
            }
        },
        "/oauth/callback": {
            "get": {
                "description": "Receives the provider redirect and sends the user to the settings page with success=<provider> or error=<code>",
                "tags": ["OAuth"],
                "summary": "OAuth callback",
                "parameters": [
                    {"type": "string", "description": "Authorization code", "name": "code", "in": "query"},
                    {"type": "string", "description": "Signed state", "name": "state", "in": "query"},
                    {"type": "string", "description": "Provider error", "name": "error", "in": "query"}
                ],
                "responses": {
                    "302": {"description": "Found"}
                }
            }
        },
        "/api/v1/oauth/{provider}/authorize": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Same as /connect/{provider} but returns the authorization URL as JSON",
                "produces": ["application/json"],
                "tags": ["OAuth"],
                "summary": "Start OAuth authorization",
                "parameters": [
                    {"type": "string", "description": "Provider", "name": "provider", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/driving.AuthorizeResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/driving.OAuthError"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/driving.OAuthError"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/driving.OAuthError"}}
                }
            }
        },
        "/api/v1/integrations": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Returns the tenant's integrations without credentials",
                "produces": ["application/json"],
                "tags": ["Integrations"],
                "summary": "List integrations",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.IntegrationSummary"}}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/api/v1/integrations/{provider}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Returns the tenant's integration for one provider without credentials",
                "produces": ["application/json"],
                "tags": ["Integrations"],
                "summary": "Get integration",
                "parameters": [
                    {"type": "string", "description": "Provider", "name": "provider", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.IntegrationSummary"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/api/v1/integrations/{provider}/disconnect": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Drops stored credentials; the integration record and its id are kept",
                "produces": ["application/json"],
                "tags": ["Integrations"],
                "summary": "Disconnect integration",
                "parameters": [
                    {"type": "string", "description": "Provider", "name": "provider", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.IntegrationSummary"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.IntegrationSummary": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "provider": {"type": "string"},
                "is_connected": {"type": "boolean"},
                "token_expires_at": {"type": "string"},
                "last_sync_at": {"type": "string"},
                "config": {"type": "object", "additionalProperties": true},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "driving.AuthorizeResponse": {
            "type": "object",
            "properties": {
                "authorization_url": {"type": "string"},
                "integration_id": {"type": "string"},
                "expires_at": {"type": "string"}
            }
        },
        "driving.OAuthError": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "provider_not_configured"},
                "error_description": {"type": "string"}
            }
        },
        "http.ErrorResponse": {
            "description": "API error response",
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "invalid token"}
            }
        },
        "http.ReadyResponse": {
            "description": "Readiness status with per-dependency checks",
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "ready"},
                "checks": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "http.StatusResponse": {
            "description": "Simple status response",
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "ok"}
            }
        },
        "http.VersionResponse": {
            "description": "API version response",
            "type": "object",
            "properties": {
                "version": {"type": "string", "example": "1.0.0"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Session JWT issued by the main application. Format: \"Bearer {token}\"",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Agency Connect API",
	Description:      "OAuth connection service. Connects an agency to Slack, Gmail, Google Ads and Meta Ads and stores the credentials encrypted.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
