package upstream

const dimensionsSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["calculated_dimensions"],
  "properties": {
    "calculated_dimensions": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["length_cm", "width_cm", "height_cm", "confidence_score"],
        "properties": {
          "name": {"type": "string"},
          "length_cm": {"type": "number", "exclusiveMinimum": 0},
          "width_cm": {"type": "number", "exclusiveMinimum": 0},
          "height_cm": {"type": "number", "exclusiveMinimum": 0},
          "confidence_score": {"type": "number", "minimum": 0, "maximum": 1}
        }
      }
    }
  }
}`

const environmentSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["inherent_style", "dominant_color_material", "light_source_direction", "shadow_intensity"],
  "properties": {
    "inherent_style": {"type": "string", "minLength": 1},
    "dominant_color_material": {"type": "string", "minLength": 1},
    "light_source_direction": {"type": "string", "minLength": 1},
    "shadow_intensity": {"type": "string", "minLength": 1}
  }
}`

const conceptsSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["options"],
  "properties": {
    "options": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "imagePrompt", "furnitureList"],
        "properties": {
          "id": {"type": ["string", "number"]},
          "name": {"type": "string", "minLength": 1},
          "description": {"type": "string"},
          "imagePrompt": {"type": "string", "minLength": 1},
          "furnitureList": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["name"],
              "properties": {
                "name": {"type": "string", "minLength": 1},
                "estimatedDimensions": {
                  "type": "object",
                  "properties": {
                    "length": {"type": "number", "minimum": 0},
                    "width": {"type": "number", "minimum": 0},
                    "height": {"type": "number", "minimum": 0}
                  }
                },
                "styleKeywords": {"type": "array", "items": {"type": "string"}},
                "materialTags": {"type": "array", "items": {"type": "string"}},
                "position": {"type": "string"}
              }
            }
          }
        }
      }
    }
  }
}`
