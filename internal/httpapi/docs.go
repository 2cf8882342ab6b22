package httpapi

import "github.com/swaggo/swag"

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "querylite API",
	Description:      "Read-through HTTP API over the querylite posts cache.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

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
    "paths": {
        "/posts": {
            "get": {
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "List posts",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.QueryResult"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/types.QueryResult"}}
                }
            }
        },
        "/posts/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Get post",
                "parameters": [{"type": "integer", "description": "Post ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.QueryResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.QueryResult"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/types.QueryResult"}}
                }
            }
        },
        "/posts/{id}/refetch": {
            "post": {
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Refetch post",
                "parameters": [{"type": "integer", "description": "Post ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/types.RefetchResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["status"],
                "summary": "Cache status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}
                }
            }
        }
    },
    "definitions": {
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer", "example": 400},
                "error": {"type": "string", "example": "invalid post id"}
            }
        },
        "types.QueryResult": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "success"},
                "is_fetching": {"type": "boolean", "example": false},
                "data": {},
                "error": {"type": "string"},
                "last_updated_unix": {"type": "integer", "example": 1700000000}
            }
        },
        "types.RefetchResponse": {
            "type": "object",
            "properties": {
                "key": {"type": "string", "example": "[\"post\",1]"},
                "joined": {"type": "boolean"}
            }
        },
        "types.QueryStatus": {
            "type": "object",
            "properties": {
                "key": {"type": "string"},
                "status": {"type": "string"},
                "is_fetching": {"type": "boolean"},
                "subscribers": {"type": "integer"},
                "gc_pending": {"type": "boolean"},
                "cache_time_ms": {"type": "integer"},
                "last_updated_unix": {"type": "integer"},
                "error": {"type": "string"}
            }
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "queries": {"type": "array", "items": {"$ref": "#/definitions/types.QueryStatus"}},
                "count": {"type": "integer"},
                "fetching_count": {"type": "integer"},
                "gc_pending_count": {"type": "integer"},
                "uptime_seconds": {"type": "integer"},
                "server_time_unix": {"type": "integer"}
            }
        }
    }
}`
