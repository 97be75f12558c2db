package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Campus OD Tracker API",
        "description": "On-duty request approval workflow for campus events",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login and token lifecycle"},
        {"name": "OD Requests", "description": "Submission and listing"},
        {"name": "Approvals", "description": "Mentor/HOD/principal workflow actions"},
        {"name": "Limits", "description": "Semester usage and exception review"},
        {"name": "Practice", "description": "Weekly LeetCode practice tracking"},
        {"name": "Notifications", "description": "Workflow event feed"},
        {"name": "Reports", "description": "OD register exports"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Refresh access token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/od-requests": {
            "get": {
                "tags": ["OD Requests"],
                "summary": "List OD requests visible to the caller",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "department", "in": "query", "type": "string"},
                    {"name": "escalated", "in": "query", "type": "boolean"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["OD Requests"],
                "summary": "Submit an OD request",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitODRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed"}
                }
            }
        },
        "/od-requests/{id}": {
            "get": {
                "tags": ["OD Requests"],
                "summary": "Get one OD request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/od-requests/{id}/mentor-action": {
            "post": {
                "tags": ["Approvals"],
                "summary": "Mentor decision (approve/reject/return)",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MentorActionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Concurrent modification"},
                    "412": {"description": "Wrong state"}
                }
            }
        },
        "/od-requests/{id}/hod-action": {
            "post": {
                "tags": ["Approvals"],
                "summary": "HOD decision on a mentor-approved request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Concurrent modification"}
                }
            }
        },
        "/od-requests/{id}/override": {
            "post": {
                "tags": ["Approvals"],
                "summary": "HOD override of a mentor rejection",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/OverrideRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "412": {"description": "Not overridable"}
                }
            }
        },
        "/od-requests/{id}/certificate": {
            "post": {
                "tags": ["Approvals"],
                "summary": "Upload event certificate",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/od-requests/{id}/finalize": {
            "post": {
                "tags": ["Approvals"],
                "summary": "Finalize an approved request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/od-requests/exceptions": {
            "get": {
                "tags": ["Limits"],
                "summary": "List over-limit exception candidates",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/od-requests/{id}/exception-decision": {
            "post": {
                "tags": ["Limits"],
                "summary": "Approve or deny an over-limit exception",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Already reviewed"}
                }
            }
        },
        "/students/{id}/od-limit": {
            "get": {
                "tags": ["Limits"],
                "summary": "Semester usage snapshot",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/leetcode/weeks": {
            "put": {
                "tags": ["Practice"],
                "summary": "Record a practice week",
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "get": {
                "tags": ["Practice"],
                "summary": "List practice weeks",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/leetcode/status": {
            "get": {
                "tags": ["Practice"],
                "summary": "Practice gate status",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List notifications",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/reports": {
            "post": {
                "tags": ["Reports"],
                "summary": "Queue an OD register export",
                "responses": {
                    "202": {"description": "Accepted"}
                }
            }
        },
        "/reports/{id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Report job status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "SubmitODRequest": {
            "type": "object",
            "required": ["rollNumber", "fromDate", "toDate", "odPeriods", "reason", "detailedReason"],
            "properties": {
                "rollNumber": {"type": "string"},
                "fromDate": {"type": "string", "format": "date"},
                "toDate": {"type": "string", "format": "date"},
                "odPeriods": {"type": "array", "items": {"type": "string"}},
                "reason": {"type": "string"},
                "detailedReason": {"type": "string"},
                "description": {"type": "string"}
            }
        },
        "MentorActionRequest": {
            "type": "object",
            "required": ["decision"],
            "properties": {
                "decision": {"type": "string", "enum": ["approve", "reject", "return"]},
                "feedback": {"type": "string"}
            }
        },
        "OverrideRequest": {
            "type": "object",
            "required": ["justification"],
            "properties": {
                "justification": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
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
