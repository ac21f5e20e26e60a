// Package docs contiene el documento OpenAPI servido en /swagger/*.
// Se mantiene a mano junto con los comentarios godoc de los handlers.
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
				"tags": [
					"system"
				],
				"summary": "Healthcheck",
				"produces": [
					"application/json"
				],
				"parameters": [],
				"responses": {
					"200": {
						"description": "OK"
					}
				}
			}
		},
		"/users": {
			"post": {
				"tags": [
					"users"
				],
				"summary": "Registrar usuario",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"name": "X-Debug-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Solo en modo dev, ID de usuario para depuración"
					},
					{
						"name": "Authorization",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Bearer token en producción"
					},
					{
						"name": "payload",
						"in": "body",
						"required": true,
						"description": "username y email opcional",
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"201": {
						"description": "Created"
					},
					"400": {
						"description": "invalid input"
					},
					"409": {
						"description": "username taken"
					}
				},
				"consumes": [
					"application/json"
				]
			}
		},
		"/me": {
			"get": {
				"tags": [
					"users"
				],
				"summary": "Usuario autenticado",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"name": "X-Debug-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Solo en modo dev, ID de usuario para depuración"
					},
					{
						"name": "Authorization",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Bearer token en producción"
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"401": {
						"description": "unauthorized"
					},
					"404": {
						"description": "not found"
					}
				}
			}
		},
		"/prescriptions": {
			"post": {
				"tags": [
					"prescriptions"
				],
				"summary": "Registrar receta ya extraída",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"name": "X-Debug-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Solo en modo dev, ID de usuario para depuración"
					},
					{
						"name": "Authorization",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Bearer token en producción"
					},
					{
						"name": "payload",
						"in": "body",
						"required": true,
						"description": "Registro del extractor",
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"201": {
						"description": "Created"
					},
					"400": {
						"description": "validation failed"
					},
					"401": {
						"description": "unauthorized"
					}
				},
				"consumes": [
					"application/json"
				]
			},
			"get": {
				"tags": [
					"prescriptions"
				],
				"summary": "Listar recetas del usuario",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"name": "X-Debug-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Solo en modo dev, ID de usuario para depuración"
					},
					{
						"name": "Authorization",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Bearer token en producción"
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"401": {
						"description": "unauthorized"
					}
				}
			}
		},
		"/prescriptions/{prescriptionID}": {
			"get": {
				"tags": [
					"prescriptions"
				],
				"summary": "Ver receta con medicamentos",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"name": "X-Debug-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Solo en modo dev, ID de usuario para depuración"
					},
					{
						"name": "Authorization",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Bearer token en producción"
					},
					{
						"name": "prescriptionID",
						"in": "path",
						"type": "string",
						"required": true,
						"description": "ID de la receta"
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"401": {
						"description": "unauthorized"
					},
					"404": {
						"description": "not found"
					}
				}
			}
		},
		"/prescriptions/{prescriptionID}/compartments/auto": {
			"post": {
				"tags": [
					"prescriptions"
				],
				"summary": "Autoasignar compartimentos libres",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"name": "X-Debug-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Solo en modo dev, ID de usuario para depuración"
					},
					{
						"name": "Authorization",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Bearer token en producción"
					},
					{
						"name": "prescriptionID",
						"in": "path",
						"type": "string",
						"required": true,
						"description": "ID de la receta"
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"401": {
						"description": "unauthorized"
					},
					"404": {
						"description": "not found"
					}
				}
			}
		},
		"/medicines/{medicineID}/compartment": {
			"patch": {
				"tags": [
					"medicines"
				],
				"summary": "Asignar compartimento",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"name": "X-Debug-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Solo en modo dev, ID de usuario para depuración"
					},
					{
						"name": "Authorization",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Bearer token en producción"
					},
					{
						"name": "medicineID",
						"in": "path",
						"type": "string",
						"required": true,
						"description": "ID del medicamento"
					},
					{
						"name": "payload",
						"in": "body",
						"required": true,
						"description": "compartment_number 0..3",
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "invalid input"
					},
					"401": {
						"description": "unauthorized"
					},
					"404": {
						"description": "not found"
					},
					"409": {
						"description": "invalid state"
					}
				},
				"consumes": [
					"application/json"
				]
			}
		},
		"/medicines/{medicineID}/regenerate": {
			"post": {
				"tags": [
					"medicines"
				],
				"summary": "Regenerar tomas futuras de un medicamento",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"name": "X-Debug-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Solo en modo dev, ID de usuario para depuración"
					},
					{
						"name": "Authorization",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Bearer token en producción"
					},
					{
						"name": "medicineID",
						"in": "path",
						"type": "string",
						"required": true,
						"description": "ID del medicamento"
					},
					{
						"name": "payload",
						"in": "body",
						"required": false,
						"description": "start_date YYYY-MM-DD opcional",
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "start_date must be YYYY-MM-DD"
					},
					"404": {
						"description": "not found"
					}
				},
				"consumes": [
					"application/json"
				]
			}
		},
		"/medicines/{medicineID}/timing": {
			"patch": {
				"tags": [
					"medicines"
				],
				"summary": "Editar frecuencia, duración o momento de un medicamento",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"name": "X-Debug-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Solo en modo dev, ID de usuario para depuración"
					},
					{
						"name": "Authorization",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Bearer token en producción"
					},
					{
						"name": "medicineID",
						"in": "path",
						"type": "string",
						"required": true,
						"description": "ID del medicamento"
					},
					{
						"name": "payload",
						"in": "body",
						"required": true,
						"description": "Campos a cambiar",
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "invalid input"
					},
					"404": {
						"description": "not found"
					}
				},
				"consumes": [
					"application/json"
				]
			}
		},
		"/schedules": {
			"get": {
				"tags": [
					"schedules"
				],
				"summary": "Próximas tomas pendientes",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"name": "X-Debug-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Solo en modo dev, ID de usuario para depuración"
					},
					{
						"name": "Authorization",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Bearer token en producción"
					},
					{
						"name": "limit",
						"in": "query",
						"type": "integer",
						"required": false,
						"description": "Máximo de resultados"
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"401": {
						"description": "unauthorized"
					}
				}
			}
		},
		"/schedules/today": {
			"get": {
				"tags": [
					"schedules"
				],
				"summary": "Tomas de hoy",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"name": "X-Debug-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Solo en modo dev, ID de usuario para depuración"
					},
					{
						"name": "Authorization",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Bearer token en producción"
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"401": {
						"description": "unauthorized"
					}
				}
			}
		},
		"/schedules/{scheduleID}": {
			"patch": {
				"tags": [
					"schedules"
				],
				"summary": "Editar horario de una toma",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"name": "X-Debug-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Solo en modo dev, ID de usuario para depuración"
					},
					{
						"name": "Authorization",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Bearer token en producción"
					},
					{
						"name": "scheduleID",
						"in": "path",
						"type": "string",
						"required": true,
						"description": "ID de la toma"
					},
					{
						"name": "payload",
						"in": "body",
						"required": true,
						"description": "scheduled_time RFC3339",
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "invalid input"
					},
					"401": {
						"description": "unauthorized"
					},
					"404": {
						"description": "not found"
					},
					"409": {
						"description": "invalid state"
					}
				},
				"consumes": [
					"application/json"
				]
			},
			"delete": {
				"tags": [
					"schedules"
				],
				"summary": "Borrar una toma",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"name": "X-Debug-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Solo en modo dev, ID de usuario para depuración"
					},
					{
						"name": "Authorization",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Bearer token en producción"
					},
					{
						"name": "scheduleID",
						"in": "path",
						"type": "string",
						"required": true,
						"description": "ID de la toma"
					}
				],
				"responses": {
					"204": {
						"description": "No Content"
					},
					"401": {
						"description": "unauthorized"
					},
					"404": {
						"description": "not found"
					}
				}
			}
		},
		"/schedules/{scheduleID}/mark-taken": {
			"post": {
				"tags": [
					"schedules"
				],
				"summary": "Marcar toma como tomada",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"name": "X-Debug-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Solo en modo dev, ID de usuario para depuración"
					},
					{
						"name": "Authorization",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Bearer token en producción"
					},
					{
						"name": "scheduleID",
						"in": "path",
						"type": "string",
						"required": true,
						"description": "ID de la toma"
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"401": {
						"description": "unauthorized"
					},
					"404": {
						"description": "not found"
					}
				}
			}
		},
		"/schedules/{scheduleID}/mark-skipped": {
			"post": {
				"tags": [
					"schedules"
				],
				"summary": "Marcar toma como salteada",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"name": "X-Debug-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Solo en modo dev, ID de usuario para depuración"
					},
					{
						"name": "Authorization",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Bearer token en producción"
					},
					{
						"name": "scheduleID",
						"in": "path",
						"type": "string",
						"required": true,
						"description": "ID de la toma"
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"401": {
						"description": "unauthorized"
					},
					"404": {
						"description": "not found"
					},
					"409": {
						"description": "invalid state"
					}
				}
			}
		},
		"/devices": {
			"post": {
				"tags": [
					"devices"
				],
				"summary": "Registrar (o actualizar) un dispositivo",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"name": "X-Debug-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Solo en modo dev, ID de usuario para depuración"
					},
					{
						"name": "Authorization",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Bearer token en producción"
					},
					{
						"name": "payload",
						"in": "body",
						"required": true,
						"description": "device_id obligatorio",
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"201": {
						"description": "Created"
					},
					"400": {
						"description": "invalid input"
					},
					"401": {
						"description": "unauthorized"
					}
				},
				"consumes": [
					"application/json"
				]
			},
			"get": {
				"tags": [
					"devices"
				],
				"summary": "Listar dispositivos activos",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"name": "X-Debug-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Solo en modo dev, ID de usuario para depuración"
					},
					{
						"name": "Authorization",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Bearer token en producción"
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"401": {
						"description": "unauthorized"
					}
				}
			}
		},
		"/devices/{deviceID}": {
			"delete": {
				"tags": [
					"devices"
				],
				"summary": "Desactivar dispositivo",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"name": "X-Debug-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Solo en modo dev, ID de usuario para depuración"
					},
					{
						"name": "Authorization",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Bearer token en producción"
					},
					{
						"name": "deviceID",
						"in": "path",
						"type": "string",
						"required": true,
						"description": "ID del dispositivo"
					}
				],
				"responses": {
					"204": {
						"description": "No Content"
					},
					"401": {
						"description": "unauthorized"
					},
					"404": {
						"description": "not found"
					}
				}
			}
		},
		"/devices/{deviceID}/notify": {
			"post": {
				"tags": [
					"devices"
				],
				"summary": "Enviar recordatorio al dispensador",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"name": "X-Debug-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Solo en modo dev, ID de usuario para depuración"
					},
					{
						"name": "Authorization",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Bearer token en producción"
					},
					{
						"name": "deviceID",
						"in": "path",
						"type": "string",
						"required": true,
						"description": "ID del dispositivo"
					},
					{
						"name": "payload",
						"in": "body",
						"required": true,
						"description": "medicine_name, dosage, instructions",
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"401": {
						"description": "unauthorized"
					},
					"404": {
						"description": "not found"
					},
					"409": {
						"description": "device not available"
					},
					"502": {
						"description": "device unreachable"
					}
				},
				"consumes": [
					"application/json"
				]
			}
		},
		"/devices/{deviceID}/dispense": {
			"post": {
				"tags": [
					"devices"
				],
				"summary": "Ordenar dispensado de un compartimento",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"name": "X-Debug-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Solo en modo dev, ID de usuario para depuración"
					},
					{
						"name": "Authorization",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Bearer token en producción"
					},
					{
						"name": "deviceID",
						"in": "path",
						"type": "string",
						"required": true,
						"description": "ID del dispositivo"
					},
					{
						"name": "payload",
						"in": "body",
						"required": true,
						"description": "compartment 1..3",
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "invalid input"
					},
					"401": {
						"description": "unauthorized"
					},
					"404": {
						"description": "not found"
					},
					"409": {
						"description": "device not available"
					},
					"502": {
						"description": "device unreachable"
					}
				},
				"consumes": [
					"application/json"
				]
			}
		},
		"/dashboard/stats": {
			"get": {
				"tags": [
					"dashboard"
				],
				"summary": "Resumen del usuario",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"name": "X-Debug-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Solo en modo dev, ID de usuario para depuración"
					},
					{
						"name": "Authorization",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Bearer token en producción"
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"401": {
						"description": "unauthorized"
					}
				}
			}
		},
		"/device/time": {
			"get": {
				"tags": [
					"device"
				],
				"summary": "Hora del servidor para el firmware",
				"produces": [
					"application/json"
				],
				"parameters": [],
				"responses": {
					"200": {
						"description": "OK"
					}
				}
			}
		},
		"/device/schedules": {
			"get": {
				"tags": [
					"device"
				],
				"summary": "Tomas pendientes de los próximos 7 días",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"name": "username",
						"in": "query",
						"type": "string",
						"required": true,
						"description": "Usuario dueño del dispensador"
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "username is required"
					},
					"404": {
						"description": "user not found"
					}
				}
			}
		},
		"/device/heartbeat": {
			"post": {
				"tags": [
					"device"
				],
				"summary": "Heartbeat / auto-registro del dispensador",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"name": "payload",
						"in": "body",
						"required": true,
						"description": "device_id y username obligatorios",
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "device_id and username are required"
					},
					"404": {
						"description": "user not found"
					}
				},
				"consumes": [
					"application/json"
				]
			}
		},
		"/device/{deviceID}/status": {
			"post": {
				"tags": [
					"device"
				],
				"summary": "Reporte de estado (sólo heartbeat)",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"name": "deviceID",
						"in": "path",
						"type": "string",
						"required": true,
						"description": "ID del dispositivo"
					},
					{
						"name": "payload",
						"in": "body",
						"required": false,
						"description": "ip_address opcional",
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"404": {
						"description": "device not found"
					}
				},
				"consumes": [
					"application/json"
				]
			}
		},
		"/device/dispense": {
			"post": {
				"tags": [
					"device"
				],
				"summary": "Confirmación de dispensado",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"name": "payload",
						"in": "body",
						"required": true,
						"description": "schedule_id obligatorio",
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "schedule_id is required"
					},
					"404": {
						"description": "schedule not found"
					}
				},
				"consumes": [
					"application/json"
				]
			}
		},
		"/device/state": {
			"post": {
				"tags": [
					"device"
				],
				"summary": "Telemetría del hardware",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"name": "payload",
						"in": "body",
						"required": true,
						"description": "device_id, username y sensores",
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "device_id and username are required"
					},
					"404": {
						"description": "device not found"
					}
				},
				"consumes": [
					"application/json"
				]
			}
		},
		"/device/commands": {
			"get": {
				"tags": [
					"device"
				],
				"summary": "Drenar comandos pendientes",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"name": "device_id",
						"in": "query",
						"type": "string",
						"required": true,
						"description": "ID del dispositivo"
					},
					{
						"name": "username",
						"in": "query",
						"type": "string",
						"required": true,
						"description": "Usuario dueño"
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "device_id and username are required"
					},
					"404": {
						"description": "device not found"
					}
				}
			}
		},
		"/device/command": {
			"post": {
				"tags": [
					"device"
				],
				"summary": "Encolar un comando para el dispensador",
				"produces": [
					"application/json"
				],
				"parameters": [
					{
						"name": "X-Debug-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Solo en modo dev, ID de usuario para depuración"
					},
					{
						"name": "Authorization",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Bearer token en producción"
					},
					{
						"name": "payload",
						"in": "body",
						"required": true,
						"description": "device_id, command y params (objeto JSON)",
						"schema": {
							"type": "object"
						}
					}
				],
				"responses": {
					"201": {
						"description": "Created"
					},
					"400": {
						"description": "invalid input"
					},
					"401": {
						"description": "unauthorized"
					},
					"404": {
						"description": "device not found"
					}
				},
				"consumes": [
					"application/json"
				]
			}
		}
	}
}`

// SwaggerInfo se puede ajustar en runtime (Host, BasePath).
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Pharmabot API",
	Description:      "Recetas, tomas planificadas y dispensadores de medicamentos.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
