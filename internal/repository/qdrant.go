package repository

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"sort"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"landprice/internal/model"
)

// Payload fields indexed for filtering
var qdrantFieldIndexes = map[string]pb.FieldType{
	"ward":                            pb.FieldType_FieldTypeKeyword,
	"station":                         pb.FieldType_FieldTypeKeyword,
	"usage":                           pb.FieldType_FieldTypeKeyword,
	"distance_to_station":             pb.FieldType_FieldTypeInteger,
	"location":                        pb.FieldType_FieldTypeGeo,
	"is_max_price":                    pb.FieldType_FieldTypeBool,
	"is_min_price":                    pb.FieldType_FieldTypeBool,
	"is_top_1_percent_price":          pb.FieldType_FieldTypeBool,
	"is_bottom_1_percent_price":       pb.FieldType_FieldTypeBool,
	"is_max_change_rate":              pb.FieldType_FieldTypeBool,
	"is_min_change_rate":              pb.FieldType_FieldTypeBool,
	"is_top_1_percent_change_rate":    pb.FieldType_FieldTypeBool,
	"is_bottom_1_percent_change_rate": pb.FieldType_FieldTypeBool,
}

// qdrantPoints is the subset of pb.PointsClient used here
type qdrantPoints interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
	CreateFieldIndex(ctx context.Context, in *pb.CreateFieldIndexCollection, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
}

// qdrantCollections is the subset of pb.CollectionsClient used here
type qdrantCollections interface {
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
	Delete(ctx context.Context, in *pb.DeleteCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
	CollectionExists(ctx context.Context, in *pb.CollectionExistsRequest, opts ...grpc.CallOption) (*pb.CollectionExistsResponse, error)
}

// QdrantOptions holds connection settings
type QdrantOptions struct {
	Addr       string
	APIKey     string
	UseTLS     bool
	Collection string
}

// QdrantRepository stores records in a Qdrant collection over gRPC
type QdrantRepository struct {
	conn        *grpc.ClientConn
	points      qdrantPoints
	collections qdrantCollections
	collection  string
}

// NewQdrantRepository creates a repository connected to Qdrant at opts.Addr
func NewQdrantRepository(opts QdrantOptions) (*QdrantRepository, error) {
	creds := insecure.NewCredentials()
	if opts.UseTLS {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	dialOpts := []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	if opts.APIKey != "" {
		dialOpts = append(dialOpts, grpc.WithUnaryInterceptor(apiKeyInterceptor(opts.APIKey)))
	}

	conn, err := grpc.NewClient(opts.Addr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("dial qdrant %s: %w", opts.Addr, err)
	}

	repo := NewQdrantRepositoryWithClients(pb.NewPointsClient(conn), pb.NewCollectionsClient(conn), opts.Collection)
	repo.conn = conn
	return repo, nil
}

// NewQdrantRepositoryWithClients creates a repository around existing gRPC clients
func NewQdrantRepositoryWithClients(points qdrantPoints, collections qdrantCollections, collection string) *QdrantRepository {
	return &QdrantRepository{
		points:      points,
		collections: collections,
		collection:  collection,
	}
}

func apiKeyInterceptor(apiKey string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", apiKey)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// Close closes the underlying gRPC connection
func (r *QdrantRepository) Close() error {
	if r.conn == nil {
		return nil
	}
	return r.conn.Close()
}

// CollectionExists reports whether the collection is present
func (r *QdrantRepository) CollectionExists(ctx context.Context) (bool, error) {
	resp, err := r.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{CollectionName: r.collection})
	if err != nil {
		return false, unavailable("qdrant collection exists", err)
	}
	return resp.GetResult().GetExists(), nil
}

// CreateCollection creates a cosine collection and the payload indexes used by filters
func (r *QdrantRepository) CreateCollection(ctx context.Context, dims int) error {
	_, err := r.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: r.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return unavailable("qdrant create collection "+r.collection, err)
	}
	return r.EnsureIndexes(ctx)
}

// EnsureIndexes creates the payload indexes used by filters. Qdrant accepts
// a repeated index request for the same field and type.
func (r *QdrantRepository) EnsureIndexes(ctx context.Context) error {
	fields := make([]string, 0, len(qdrantFieldIndexes))
	for field := range qdrantFieldIndexes {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	wait := true
	for _, field := range fields {
		_, err := r.points.CreateFieldIndex(ctx, &pb.CreateFieldIndexCollection{
			CollectionName: r.collection,
			Wait:           &wait,
			FieldName:      field,
			FieldType:      qdrantFieldIndexes[field].Enum(),
		})
		if err != nil {
			return unavailable("qdrant create index "+field, err)
		}
	}
	return nil
}

// DeleteCollection deletes the collection
func (r *QdrantRepository) DeleteCollection(ctx context.Context) error {
	if _, err := r.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: r.collection}); err != nil {
		return unavailable("qdrant delete collection "+r.collection, err)
	}
	return nil
}

// UpsertPoints writes points, replacing any with the same id
func (r *QdrantRepository) UpsertPoints(ctx context.Context, points []model.Point) error {
	if len(points) == 0 {
		return nil
	}

	structs := make([]*pb.PointStruct, len(points))
	for i, p := range points {
		payload, err := payloadToQdrant(p.Payload)
		if err != nil {
			return fmt.Errorf("point %d: %w", p.ID, err)
		}
		structs[i] = &pb.PointStruct{
			Id: &pb.PointId{PointIdOptions: &pb.PointId_Num{Num: p.ID}},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: p.Vector}},
			},
			Payload: payload,
		}
	}

	wait := true
	_, err := r.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: r.collection,
		Wait:           &wait,
		Points:         structs,
	})
	if err != nil {
		return unavailable(fmt.Sprintf("qdrant upsert %d points", len(points)), err)
	}
	return nil
}

// QuerySimilar performs a filtered k-NN search
func (r *QdrantRepository) QuerySimilar(ctx context.Context, vector []float32, filter *model.QueryFilter, limit int) ([]model.ScoredRecord, error) {
	req := &pb.SearchPoints{
		CollectionName: r.collection,
		Vector:         vector,
		Filter:         filterToQdrant(filter),
		Limit:          uint64(limit),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}

	resp, err := r.points.Search(ctx, req)
	if err != nil {
		return nil, unavailable("qdrant search", err)
	}

	records := make([]model.ScoredRecord, 0, len(resp.GetResult()))
	for _, hit := range resp.GetResult() {
		payload, err := payloadFromQdrant(hit.GetPayload())
		if err != nil {
			return nil, fmt.Errorf("decode payload of point %d: %w", hit.GetId().GetNum(), err)
		}
		records = append(records, model.ScoredRecord{
			ID:      hit.GetId().GetNum(),
			Score:   hit.GetScore(),
			Payload: payload,
		})
	}
	return records, nil
}

// filterToQdrant converts a QueryFilter to the Qdrant filter message
func filterToQdrant(f *model.QueryFilter) *pb.Filter {
	if f.Len() == 0 {
		return nil
	}

	must := make([]*pb.Condition, 0, len(f.Must))
	for _, c := range f.Must {
		field := &pb.FieldCondition{Key: c.Field}
		switch c.Kind {
		case model.ConditionKeyword:
			field.Match = &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: c.Keyword}}
		case model.ConditionBool:
			field.Match = &pb.Match{MatchValue: &pb.Match_Boolean{Boolean: c.Bool}}
		case model.ConditionRange:
			field.Range = &pb.Range{Lte: c.Lte}
		case model.ConditionGeoBox:
			field.GeoBoundingBox = &pb.GeoBoundingBox{
				TopLeft:     &pb.GeoPoint{Lat: c.GeoBox.TopLeft.Lat, Lon: c.GeoBox.TopLeft.Lon},
				BottomRight: &pb.GeoPoint{Lat: c.GeoBox.BottomRight.Lat, Lon: c.GeoBox.BottomRight.Lon},
			}
		default:
			continue
		}
		must = append(must, &pb.Condition{ConditionOneOf: &pb.Condition_Field{Field: field}})
	}
	return &pb.Filter{Must: must}
}

// payloadToQdrant converts a payload through its JSON form so field names
// match the json tags of model.LandPrice
func payloadToQdrant(p model.LandPrice) (map[string]*pb.Value, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var fields map[string]interface{}
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}

	out := make(map[string]*pb.Value, len(fields))
	for k, v := range fields {
		out[k] = toQdrantValue(v)
	}
	return out, nil
}

func toQdrantValue(v interface{}) *pb.Value {
	switch tv := v.(type) {
	case string:
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: tv}}
	case bool:
		return &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: tv}}
	case json.Number:
		if i, err := tv.Int64(); err == nil {
			return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: i}}
		}
		f, _ := tv.Float64()
		return &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: f}}
	case map[string]interface{}:
		fields := make(map[string]*pb.Value, len(tv))
		for k, inner := range tv {
			fields[k] = toQdrantValue(inner)
		}
		return &pb.Value{Kind: &pb.Value_StructValue{StructValue: &pb.Struct{Fields: fields}}}
	case []interface{}:
		values := make([]*pb.Value, len(tv))
		for i, inner := range tv {
			values[i] = toQdrantValue(inner)
		}
		return &pb.Value{Kind: &pb.Value_ListValue{ListValue: &pb.ListValue{Values: values}}}
	case nil:
		return &pb.Value{Kind: &pb.Value_NullValue{}}
	default:
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: fmt.Sprint(tv)}}
	}
}

func payloadFromQdrant(fields map[string]*pb.Value) (model.LandPrice, error) {
	plain := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		plain[k] = fromQdrantValue(v)
	}

	var p model.LandPrice
	raw, err := json.Marshal(plain)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, err
	}
	return p, nil
}

func fromQdrantValue(v *pb.Value) interface{} {
	switch kind := v.GetKind().(type) {
	case *pb.Value_StringValue:
		return kind.StringValue
	case *pb.Value_BoolValue:
		return kind.BoolValue
	case *pb.Value_IntegerValue:
		return kind.IntegerValue
	case *pb.Value_DoubleValue:
		return kind.DoubleValue
	case *pb.Value_StructValue:
		out := make(map[string]interface{}, len(kind.StructValue.GetFields()))
		for k, inner := range kind.StructValue.GetFields() {
			out[k] = fromQdrantValue(inner)
		}
		return out
	case *pb.Value_ListValue:
		out := make([]interface{}, len(kind.ListValue.GetValues()))
		for i, inner := range kind.ListValue.GetValues() {
			out[i] = fromQdrantValue(inner)
		}
		return out
	default:
		return nil
	}
}
