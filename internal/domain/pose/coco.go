package pose

// NumJoints is the joint count of the COCO-17 skeleton.
const NumJoints = 17

// COCOJoints lists the COCO-17 joints in backbone order.
var COCOJoints = [NumJoints]string{
	"nose",
	"left_eye", "right_eye",
	"left_ear", "right_ear",
	"left_shoulder", "right_shoulder",
	"left_elbow", "right_elbow",
	"left_wrist", "right_wrist",
	"left_hip", "right_hip",
	"left_knee", "right_knee",
	"left_ankle", "right_ankle",
}

// detectorJoints maps each COCO slot to the detector's MHR70 joint name.
// MHR70 keeps the wrists far from the other limbs (index 62 left, 41 right).
var detectorJoints = [NumJoints]string{
	"nose",
	"left-eye", "right-eye",
	"left-ear", "right-ear",
	"left-shoulder", "right-shoulder",
	"left-elbow", "right-elbow",
	"left-wrist", "right-wrist",
	"left-hip", "right-hip",
	"left-knee", "right-knee",
	"left-ankle", "right-ankle",
}

// Skeleton is a COCO-17 keypoint array with per-joint confidence.
// Joints missing from the detector output have a zero point and a zero score.
type Skeleton struct {
	Points [NumJoints]Point
	Scores [NumJoints]float32
}

// Present returns the number of joints with a non-zero score.
func (s *Skeleton) Present() int {
	n := 0
	for _, sc := range s.Scores {
		if sc > 0 {
			n++
		}
	}
	return n
}

// ToCOCO17 remaps detector keypoints onto the COCO-17 skeleton.
// Detector (MHR70) names take precedence; COCO names are accepted as a fallback
// for detectors that already speak COCO.
func ToCOCO17(k Keypoints) Skeleton {
	var s Skeleton
	for i := range NumJoints {
		p, ok := k[detectorJoints[i]]
		if !ok {
			p, ok = k[COCOJoints[i]]
		}
		if !ok {
			continue
		}
		s.Points[i] = p
		s.Scores[i] = 1
	}
	return s
}
