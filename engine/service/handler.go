package service

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"

	"github.com/Carmen-Shannon/oxy-render/engine/status"
)

// methodFunc decodes the params of one remote method and runs it.
type methodFunc func(ctx context.Context, params json.RawMessage) (any, error)

// Handler dispatches remote calls by method name.
type Handler interface {
	// Handle runs one remote call.
	//
	// Parameters:
	//   - ctx: the request context
	//   - method: the method name, e.g. "CreateScene"
	//   - params: the JSON encoded request message, may be empty for parameterless methods
	//
	// Returns:
	//   - any: the response message
	//   - error: InvalidArgument for unknown methods or malformed params, otherwise the method's error
	Handle(ctx context.Context, method string, params json.RawMessage) (any, error)

	// Methods lists the names Handle accepts.
	Methods() []string
}

// typed adapts a typed operation to a methodFunc.
func typed[Req any](fn func(req Req) (any, error)) methodFunc {
	return func(ctx context.Context, params json.RawMessage) (any, error) {
		var req Req
		if len(bytes.TrimSpace(params)) > 0 && !bytes.Equal(bytes.TrimSpace(params), []byte("null")) {
			if err := json.Unmarshal(params, &req); err != nil {
				return nil, status.Errorf(status.InvalidArgument, "malformed params: %v", err)
			}
		}
		return fn(req)
	}
}

func idResponse(id uint64, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return IDResponse{ID: id}, nil
}

func emptyResponse(err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return Empty{}, nil
}

func (s *renderService) methodTable() map[string]methodFunc {
	return map[string]methodFunc{
		"CreateScene": typed(func(req IndexRequest) (any, error) {
			return idResponse(s.CreateScene(req.Index))
		}),
		"RemoveScene": typed(func(req IDRequest) (any, error) {
			return emptyResponse(s.RemoveScene(req.ID))
		}),
		"CreateMaterial": typed(func(Empty) (any, error) {
			return idResponse(s.CreateMaterial())
		}),
		"RemoveMaterial": typed(func(req IDRequest) (any, error) {
			return emptyResponse(s.RemoveMaterial(req.ID))
		}),
		"SetBaseColor": typed(func(req Vec4Request) (any, error) {
			return emptyResponse(s.SetBaseColor(req.ID, req.Data))
		}),
		"SetRoughness": typed(func(req FloatRequest) (any, error) {
			return emptyResponse(s.SetRoughness(req.ID, req.Value))
		}),
		"SetSpecular": typed(func(req FloatRequest) (any, error) {
			return emptyResponse(s.SetSpecular(req.ID, req.Value))
		}),
		"SetMetallic": typed(func(req FloatRequest) (any, error) {
			return emptyResponse(s.SetMetallic(req.ID, req.Value))
		}),
		"AddBodyMesh": typed(func(req AddBodyMeshRequest) (any, error) {
			return idResponse(s.AddBodyMesh(req))
		}),
		"AddBodyPrimitive": typed(func(req AddBodyPrimitiveRequest) (any, error) {
			return idResponse(s.AddBodyPrimitive(req))
		}),
		"RemoveBody": typed(func(req BodyRequest) (any, error) {
			return emptyResponse(s.RemoveBody(req.SceneID, req.BodyID))
		}),
		"SetVisibility": typed(func(req BodyFloatRequest) (any, error) {
			return emptyResponse(s.SetVisibility(req.SceneID, req.BodyID, req.Value))
		}),
		"GetShapeCount": typed(func(req BodyRequest) (any, error) {
			n, err := s.GetShapeCount(req.SceneID, req.BodyID)
			if err != nil {
				return nil, err
			}
			return ValueResponse{Value: n}, nil
		}),
		"GetShapeMaterial": typed(func(req BodyIndexRequest) (any, error) {
			return idResponse(s.GetShapeMaterial(req.SceneID, req.BodyID, req.ID))
		}),
		"AddCamera": typed(func(req AddCameraRequest) (any, error) {
			return idResponse(s.AddCamera(req))
		}),
		"SetCameraParameters": typed(func(req CameraParamsRequest) (any, error) {
			return emptyResponse(s.SetCameraParameters(req))
		}),
		"SetAmbientLight": typed(func(req Vec3Request) (any, error) {
			return emptyResponse(s.SetAmbientLight(req.ID, req.Data))
		}),
		"AddPointLight": typed(func(req AddPointLightRequest) (any, error) {
			return idResponse(s.AddPointLight(req))
		}),
		"AddDirectionalLight": typed(func(req AddDirectionalLightRequest) (any, error) {
			return idResponse(s.AddDirectionalLight(req))
		}),
		"SetEntityOrder": typed(func(req EntityOrderRequest) (any, error) {
			return emptyResponse(s.SetEntityOrder(req.SceneID, req.BodyIDs, req.CameraIDs))
		}),
		"UpdateRender": typed(func(req UpdateRenderRequest) (any, error) {
			return emptyResponse(s.UpdateRender(req.SceneID, toPoses(req.BodyPoses), toPoses(req.CameraPoses)))
		}),
		"TakePicture": typed(func(req TakePictureRequest) (any, error) {
			return emptyResponse(s.TakePicture(req.SceneID, req.CameraID))
		}),
		"UpdateRenderAndTakePictures": typed(func(req UpdateRenderAndTakePicturesRequest) (any, error) {
			return emptyResponse(s.UpdateRenderAndTakePictures(req.SceneID, toPoses(req.BodyPoses), toPoses(req.CameraPoses), req.CameraIDs))
		}),
		"Summary": typed(func(Empty) (any, error) {
			return SummaryResponse{Summary: s.Summary()}, nil
		}),
	}
}

func (s *renderService) Handle(ctx context.Context, method string, params json.RawMessage) (any, error) {
	fn, ok := s.methods[method]
	if !ok {
		return nil, status.Errorf(status.InvalidArgument, "unknown method %q", method)
	}
	if err := ctx.Err(); err != nil {
		return nil, status.Errorf(status.Internal, "%s: %v", method, err)
	}
	return fn(ctx, params)
}

func (s *renderService) Methods() []string {
	names := make([]string, 0, len(s.methods))
	for name := range s.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
