package service

import "github.com/Carmen-Shannon/oxy-render/common"

// Wire messages of the remote-call surface. Field names follow the snake_case
// convention shared with clients.

type Empty struct{}

type IndexRequest struct {
	Index int `json:"index"`
}

type IDRequest struct {
	ID common.ID `json:"id"`
}

type IDResponse struct {
	ID common.ID `json:"id"`
}

type Vec3Request struct {
	ID   common.ID  `json:"id"`
	Data [3]float32 `json:"data"`
}

type Vec4Request struct {
	ID   common.ID  `json:"id"`
	Data [4]float32 `json:"data"`
}

type FloatRequest struct {
	ID    common.ID `json:"id"`
	Value float32   `json:"value"`
}

type AddBodyMeshRequest struct {
	SceneID       common.ID `json:"scene_id"`
	Filename      string    `json:"filename"`
	Segmentation0 uint32    `json:"segmentation0"`
	Segmentation1 uint32    `json:"segmentation1"`
}

type AddBodyPrimitiveRequest struct {
	SceneID       common.ID  `json:"scene_id"`
	Type          string     `json:"type"`
	Scale         [3]float32 `json:"scale"`
	Material      common.ID  `json:"material"`
	Segmentation0 uint32     `json:"segmentation0"`
	Segmentation1 uint32     `json:"segmentation1"`
}

type BodyRequest struct {
	SceneID common.ID `json:"scene_id"`
	BodyID  common.ID `json:"body_id"`
}

type BodyFloatRequest struct {
	SceneID common.ID `json:"scene_id"`
	BodyID  common.ID `json:"body_id"`
	Value   float32   `json:"value"`
}

type BodyIndexRequest struct {
	SceneID common.ID `json:"scene_id"`
	BodyID  common.ID `json:"body_id"`
	ID      int       `json:"id"`
}

type ValueResponse struct {
	Value int `json:"value"`
}

type AddCameraRequest struct {
	SceneID common.ID `json:"scene_id"`
	Width   int       `json:"width"`
	Height  int       `json:"height"`
	Near    float32   `json:"near"`
	Far     float32   `json:"far"`
	Fx      float32   `json:"fx"`
	Fy      float32   `json:"fy"`
	Cx      float32   `json:"cx"`
	Cy      float32   `json:"cy"`
	Skew    float32   `json:"skew"`
	Shader  string    `json:"shader"`
}

type CameraParamsRequest struct {
	SceneID  common.ID `json:"scene_id"`
	CameraID common.ID `json:"camera_id"`
	Near     float32   `json:"near"`
	Far      float32   `json:"far"`
	Fx       float32   `json:"fx"`
	Fy       float32   `json:"fy"`
	Cx       float32   `json:"cx"`
	Cy       float32   `json:"cy"`
	Skew     float32   `json:"skew"`
}

type AddPointLightRequest struct {
	SceneID       common.ID  `json:"scene_id"`
	Position      [3]float32 `json:"position"`
	Color         [3]float32 `json:"color"`
	Shadow        bool       `json:"shadow"`
	ShadowNear    float32    `json:"shadow_near"`
	ShadowFar     float32    `json:"shadow_far"`
	ShadowMapSize int        `json:"shadow_map_size"`
}

type AddDirectionalLightRequest struct {
	SceneID       common.ID  `json:"scene_id"`
	Direction     [3]float32 `json:"direction"`
	Color         [3]float32 `json:"color"`
	Shadow        bool       `json:"shadow"`
	Position      [3]float32 `json:"position"`
	ShadowScale   float32    `json:"shadow_scale"`
	ShadowNear    float32    `json:"shadow_near"`
	ShadowFar     float32    `json:"shadow_far"`
	ShadowMapSize int        `json:"shadow_map_size"`
}

type EntityOrderRequest struct {
	SceneID   common.ID   `json:"scene_id"`
	BodyIDs   []common.ID `json:"body_ids"`
	CameraIDs []common.ID `json:"camera_ids"`
}

// Pose is a position and a w-first quaternion.
type Pose struct {
	P [3]float32 `json:"p"`
	Q [4]float32 `json:"q"`
}

// ToPose converts the wire pose.
func (p Pose) ToPose() common.Pose {
	return common.NewPose(p.P, p.Q)
}

type UpdateRenderRequest struct {
	SceneID     common.ID `json:"scene_id"`
	BodyPoses   []Pose    `json:"body_poses"`
	CameraPoses []Pose    `json:"camera_poses"`
}

type TakePictureRequest struct {
	SceneID  common.ID `json:"scene_id"`
	CameraID common.ID `json:"camera_id"`
}

type UpdateRenderAndTakePicturesRequest struct {
	SceneID     common.ID   `json:"scene_id"`
	BodyPoses   []Pose      `json:"body_poses"`
	CameraPoses []Pose      `json:"camera_poses"`
	CameraIDs   []common.ID `json:"camera_ids"`
}

type SummaryResponse struct {
	Summary string `json:"summary"`
}

func toPoses(in []Pose) []common.Pose {
	out := make([]common.Pose, len(in))
	for i, p := range in {
		out[i] = p.ToPose()
	}
	return out
}
