package validators

import "go.mongodb.org/mongo-driver/bson"

// PatientValidator mirrors the struct-tag rules that matter for data
// integrity. Format checks such as CPF check digits stay in the service.
var PatientValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"name",
			"cpf",
			"gender",
			"birth_date",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 150,
			},

			"name_key": bson.M{
				"bsonType": "string",
			},

			"cpf": bson.M{
				"bsonType": "string",
				"pattern":  "^[0-9]{11}$",
			},

			"guardian_cpf": bson.M{
				"bsonType": "string",
				"pattern":  "^[0-9]{11}$",
			},

			"gender": bson.M{
				"enum": []string{"masculino", "feminino", "outro"},
			},

			"birth_date": bson.M{
				"bsonType": "date",
			},

			"race": bson.M{
				"enum": []string{"branca", "preta", "parda", "amarela", "indigena"},
			},

			"marital_status": bson.M{
				"enum": []string{"solteiro", "casado", "divorciado", "viuvo", "uniao_estavel"},
			},

			"observations": bson.M{
				"bsonType":  "string",
				"maxLength": 2000,
			},

			"is_newborn_in_plan": bson.M{
				"bsonType": "bool",
			},

			"photo": bson.M{
				"bsonType": "object",
				"required": []string{"name", "content_type"},
				"properties": bson.M{
					"content_type": bson.M{
						"bsonType": "string",
						"pattern":  "^image/",
					},
				},
			},

			"attachments": bson.M{
				"bsonType": "array",
				"maxItems": 20,
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"name", "content_type"},
				},
			},

			"contact": bson.M{
				"bsonType": "object",
			},

			"address": bson.M{
				"bsonType": "object",
				"properties": bson.M{
					"cep": bson.M{
						"bsonType": "string",
						"pattern":  "^[0-9]{8}$",
					},
					"state": bson.M{
						"bsonType": "string",
						"pattern":  "^[A-Z]{2}$",
					},
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
