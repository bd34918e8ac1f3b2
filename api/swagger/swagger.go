package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "EDMS Archive Gateway",
        "description": "Gateway for the bilingual employee document archive dashboard",
        "version": "0.1.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "HR", "description": "HR registry lookups behind the employee picker"},
        {"name": "Employees", "description": "Archive record management"},
        {"name": "Dashboard", "description": "List view and counter cards"},
        {"name": "Documents", "description": "Stored document content for the viewer"},
        {"name": "Catalogs", "description": "Lookup lists"},
        {"name": "Export", "description": "CSV/PDF downloads"},
        {"name": "Session", "description": "Resolved session capability"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/session": {
            "get": {
                "tags": ["Session"],
                "summary": "Get the current session",
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/api/hr/employees": {
            "get": {
                "tags": ["HR"],
                "summary": "Search HR employees",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/HRSearchResponse"}}
                }
            }
        },
        "/api/hr/employees/{id}": {
            "get": {
                "tags": ["HR"],
                "summary": "Get one HR profile",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/api/employees": {
            "get": {
                "tags": ["Employees"],
                "summary": "List archive records",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "filter", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/EmployeeListResponse"}}
                }
            },
            "post": {
                "tags": ["Employees"],
                "summary": "Create an archive record",
                "consumes": ["multipart/form-data"],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Validation failure", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/api/employees/{id}": {
            "get": {
                "tags": ["Employees"],
                "summary": "Get one archive record",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "put": {
                "tags": ["Employees"],
                "summary": "Update an archive record",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Validation failure", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/api/employees/bulk-upload": {
            "post": {
                "tags": ["Employees"],
                "summary": "Bulk-import archive records from a spreadsheet",
                "consumes": ["multipart/form-data"],
                "responses": {
                    "200": {"description": "Imported"},
                    "422": {"description": "Partially imported", "schema": {"$ref": "#/definitions/PartialResult"}}
                }
            }
        },
        "/api/dashboard/employees": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "List dashboard rows",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "filter", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/EmployeeListResponse"}}
                }
            }
        },
        "/api/dashboard/counters": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Get the dashboard counters",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/DashboardCounters"}}
                }
            }
        },
        "/api/catalogs": {
            "get": {
                "tags": ["Catalogs"],
                "summary": "Get the lookup catalogs",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/documents/{id}/content": {
            "get": {
                "tags": ["Documents"],
                "summary": "Stream stored document content",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "502": {"description": "Backend unreachable", "schema": {"$ref": "#/definitions/ErrorBody"}}
                }
            }
        },
        "/api/documents/{id}/preview": {
            "get": {
                "tags": ["Documents"],
                "summary": "Prepare a document for the viewer overlay",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/export": {
            "get": {
                "tags": ["Export"],
                "summary": "Export the filtered archive list",
                "parameters": [
                    {"name": "format", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "filter", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        }
    },
    "definitions": {
        "HRSearchResponse": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"type": "object"}},
                "hasMore": {"type": "boolean"}
            }
        },
        "EmployeeListResponse": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"type": "object"}},
                "totalCount": {"type": "integer"}
            }
        },
        "DashboardCounters": {
            "type": "object",
            "properties": {
                "total": {"type": "integer"},
                "active_warrants": {"type": "integer"},
                "inactive_warrants": {"type": "integer"},
                "expiring_soon": {"type": "integer"}
            }
        },
        "PartialResult": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "errors": {"type": "array", "items": {"type": "string"}}
            }
        },
        "ErrorBody": {
            "type": "object",
            "properties": {
                "error": {"type": "string"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
