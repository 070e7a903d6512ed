// Package docs holds the OpenAPI description of the SheRise API, registered with swag
// and served by the swagger handler at /api/swagger.
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
		"/trends": {
			"get": {
				"tags": [
					"Fixtures"
				],
				"summary": "List normalized trends",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/products": {
			"get": {
				"tags": [
					"Fixtures"
				],
				"summary": "List shop products, optionally by ?category=",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"in": "query",
						"name": "category",
						"type": "string"
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/auth/signup": {
			"post": {
				"tags": [
					"Auth"
				],
				"summary": "Create an account and sign in",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"in": "body",
						"name": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"201": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/auth/login": {
			"post": {
				"tags": [
					"Auth"
				],
				"summary": "Sign in with email and password",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"in": "body",
						"name": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/auth/logout": {
			"post": {
				"tags": [
					"Auth"
				],
				"summary": "Sign out and clear the auth slices",
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"204": {
						"description": "OK"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/feature-flags": {
			"get": {
				"tags": [
					"System"
				],
				"summary": "Snapshot of feature flags for the caller",
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/slices/{key}": {
			"get": {
				"tags": [
					"Slices"
				],
				"summary": "Read a slice; ETag carries its version",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"in": "path",
						"name": "key",
						"type": "string",
						"required": true
					},
					{
						"in": "query",
						"name": "shared",
						"type": "string"
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			},
			"put": {
				"tags": [
					"Slices"
				],
				"summary": "Overwrite a slice; If-Match makes it conditional",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"in": "path",
						"name": "key",
						"type": "string",
						"required": true
					},
					{
						"in": "query",
						"name": "shared",
						"type": "string"
					},
					{
						"in": "header",
						"name": "If-Match",
						"type": "string"
					},
					{
						"in": "body",
						"name": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			},
			"delete": {
				"tags": [
					"Slices"
				],
				"summary": "Delete a slice",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"in": "path",
						"name": "key",
						"type": "string",
						"required": true
					},
					{
						"in": "query",
						"name": "shared",
						"type": "string"
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"204": {
						"description": "OK"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/events/{name}": {
			"post": {
				"tags": [
					"Events"
				],
				"summary": "Publish a notification",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"in": "path",
						"name": "name",
						"type": "string",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"202": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/ws/ticket": {
			"post": {
				"tags": [
					"Events"
				],
				"summary": "Issue a single-use WebSocket ticket",
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/ws": {
			"get": {
				"tags": [
					"Events"
				],
				"summary": "WebSocket notification stream",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"in": "query",
						"name": "ticket",
						"type": "string"
					},
					{
						"in": "query",
						"name": "token",
						"type": "string"
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"101": {
						"description": "Switching Protocols"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/hirings": {
			"get": {
				"tags": [
					"Hiring"
				],
				"summary": "List hiring posts, optionally by ?category=",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"in": "query",
						"name": "category",
						"type": "string"
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			},
			"post": {
				"tags": [
					"Hiring"
				],
				"summary": "Create a hiring post",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"in": "body",
						"name": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"201": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/hirings/categories": {
			"get": {
				"tags": [
					"Hiring"
				],
				"summary": "Distinct hiring categories",
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/hirings/open-form": {
			"post": {
				"tags": [
					"Hiring"
				],
				"summary": "Ask the caller's views to open the hiring form",
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"202": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/posts": {
			"get": {
				"tags": [
					"Feed"
				],
				"summary": "List feed posts",
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			},
			"post": {
				"tags": [
					"Feed"
				],
				"summary": "Create a post",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"in": "body",
						"name": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"201": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/posts/{id}/comments": {
			"post": {
				"tags": [
					"Feed"
				],
				"summary": "Comment on a post",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"in": "path",
						"name": "id",
						"type": "string",
						"required": true
					},
					{
						"in": "body",
						"name": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"201": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/posts/{id}/like": {
			"post": {
				"tags": [
					"Feed"
				],
				"summary": "Toggle a like on a post",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"in": "path",
						"name": "id",
						"type": "string",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/follows": {
			"get": {
				"tags": [
					"Follows"
				],
				"summary": "Profiles the caller follows",
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/follows/{userId}/toggle": {
			"post": {
				"tags": [
					"Follows"
				],
				"summary": "Follow or unfollow a member",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"in": "path",
						"name": "userId",
						"type": "string",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/connections": {
			"get": {
				"tags": [
					"Follows"
				],
				"summary": "Followed profiles with last message preview",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"in": "query",
						"name": "q",
						"type": "string"
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/explore": {
			"get": {
				"tags": [
					"Explore"
				],
				"summary": "Explore items with owners",
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/explore/{id}/like": {
			"post": {
				"tags": [
					"Explore"
				],
				"summary": "Toggle a like on an explore item",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"in": "path",
						"name": "id",
						"type": "string",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/explore/{id}/save": {
			"post": {
				"tags": [
					"Explore"
				],
				"summary": "Toggle a save on an explore item",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"in": "path",
						"name": "id",
						"type": "string",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/profiles": {
			"get": {
				"tags": [
					"Profiles"
				],
				"summary": "Member directory",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"name": "q",
						"in": "query"
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/profiles/me": {
			"get": {
				"tags": [
					"Profiles"
				],
				"summary": "The caller's profile",
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			},
			"put": {
				"tags": [
					"Profiles"
				],
				"summary": "Update the caller's profile",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"in": "body",
						"name": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/profiles/{id}": {
			"get": {
				"tags": [
					"Profiles"
				],
				"summary": "A member profile with gallery and posts",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"in": "path",
						"name": "id",
						"type": "string",
						"required": true
					},
					{
						"in": "query",
						"name": "page",
						"type": "string"
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/coach": {
			"get": {
				"tags": [
					"Coach"
				],
				"summary": "The coach transcript",
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			},
			"delete": {
				"tags": [
					"Coach"
				],
				"summary": "Reset the coach transcript",
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"204": {
						"description": "OK"
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/coach/messages": {
			"post": {
				"tags": [
					"Coach"
				],
				"summary": "Send a message to the coach",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"in": "body",
						"name": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/coach/suggestions": {
			"get": {
				"tags": [
					"Coach"
				],
				"summary": "Trend-based suggestions",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"name": "business",
						"in": "query"
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/messages/{userId}": {
			"get": {
				"tags": [
					"Messages"
				],
				"summary": "A direct message thread",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"in": "path",
						"name": "userId",
						"type": "string",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			},
			"post": {
				"tags": [
					"Messages"
				],
				"summary": "Send a direct message",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"in": "path",
						"name": "userId",
						"type": "string",
						"required": true
					},
					{
						"in": "body",
						"name": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"201": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/cart": {
			"get": {
				"tags": [
					"Shop"
				],
				"summary": "The caller's cart and subtotal",
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/cart/items": {
			"post": {
				"tags": [
					"Shop"
				],
				"summary": "Add a product to the cart",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"in": "body",
						"name": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/cart/items/{index}": {
			"patch": {
				"tags": [
					"Shop"
				],
				"summary": "Change a line's quantity",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"in": "path",
						"name": "index",
						"type": "string",
						"required": true
					},
					{
						"in": "body",
						"name": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			},
			"delete": {
				"tags": [
					"Shop"
				],
				"summary": "Remove a cart line",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"in": "path",
						"name": "index",
						"type": "string",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/checkout": {
			"get": {
				"tags": [
					"Shop"
				],
				"summary": "Checkout panel state",
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/checkout/{action}": {
			"post": {
				"tags": [
					"Shop"
				],
				"summary": "Open or close the cart or checkout panel",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"in": "path",
						"name": "action",
						"type": "string",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		},
		"/orders": {
			"get": {
				"tags": [
					"Shop"
				],
				"summary": "Placed orders",
				"produces": [
					"application/json"
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			},
			"post": {
				"tags": [
					"Shop"
				],
				"summary": "Place an order from the cart",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"in": "body",
						"name": "body",
						"required": true,
						"schema": {
							"type": "object"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				],
				"responses": {
					"201": {
						"description": "OK",
						"schema": {
							"type": "object"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/models.ErrorResponse"
						}
					}
				}
			}
		}
	},
	"definitions": {
		"models.ErrorResponse": {
			"type": "object",
			"properties": {
				"error": {
					"type": "string"
				},
				"code": {
					"type": "string"
				},
				"details": {
					"type": "string"
				}
			}
		}
	},
	"securityDefinitions": {
		"BearerAuth": {
			"description": "Type \"Bearer\" followed by a space and the JWT.",
			"type": "apiKey",
			"name": "Authorization",
			"in": "header"
		}
	}
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:		  "1.0",
	Host:			 "",
	BasePath:		 "/api",
	Schemes:		  []string{},
	Title:			"SheRise API",
	Description:	  "Community platform for women entrepreneurs: feed, hiring, coach, messages and shop.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:		"{{",
	RightDelim:	   "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
