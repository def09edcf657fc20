package elasticsearch

// DefaultIndexName is the index used for doctor documents when none is
// configured.
const DefaultIndexName = "medicare_doctors"

// buildIndexMapping returns the doctors index settings and mapping. Names
// get an edge n-gram subfield so partial names match while typing.
func buildIndexMapping() string {
	return `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "analysis": {
      "analyzer": {
        "autocomplete_analyzer": {
          "type": "custom",
          "tokenizer": "autocomplete_tokenizer",
          "filter": ["lowercase", "asciifolding"]
        },
        "autocomplete_search": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase", "asciifolding"]
        }
      },
      "tokenizer": {
        "autocomplete_tokenizer": {
          "type": "edge_ngram",
          "min_gram": 2,
          "max_gram": 20,
          "token_chars": ["letter", "digit"]
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "id":             { "type": "keyword" },
      "name":           { "type": "text", "analyzer": "standard", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 }, "autocomplete": { "type": "text", "analyzer": "autocomplete_analyzer", "search_analyzer": "autocomplete_search" } } },
      "email":          { "type": "keyword" },
      "role":           { "type": "keyword" },
      "specialization": { "type": "text", "analyzer": "english", "fields": { "keyword": { "type": "keyword" } } },
      "created_at":     { "type": "date" }
    }
  }
}`
}
