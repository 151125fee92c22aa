// Package config loads route validation configuration.
//
// Routes can come from a route file or from an OpenAPI 3 document. A route
// file maps ServeMux patterns to the schemas of each validation target:
//
//	routes:
//	  "GET /users":
//	    query:
//	      fields:
//	        limit:  {type: number, default: 20}
//	        offset: {type: number, default: 20}
//	  "GET /users/{id}":
//	    params:
//	      fields:
//	        id: {type: number, required: true}
//	    response:
//	      schemaRef: ./user.schema.json
//
// A target is described by exactly one of:
//   - fields (with optional unknown and rules): field rules
//   - jsonSchema: an inline JSON Schema document
//   - schemaRef: the path of a JSON Schema file, relative to the route file
//   - value: a single field rule for non-object values
//
// Files ending in .yaml or .yml are read as YAML, everything else as JSON.
//
//	routes, err := config.Load("routes.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for pattern, cfg := range routes {
//	    mux.Handle(pattern, validation.Middleware(cfg)(handler))
//	}
package config
