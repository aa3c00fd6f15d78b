package appts

// As the distribution of the number of appointments per individual isn't
// normal (rather negatively skewed with a long positive tail), we model it
// using a sum of three distinct components with fixed, well-separated centres,
// fed from a model output vector of length OutputComponents. The model learns
// the mixture weights implicitly through its bounded outputs.
var (
	AppointmentMeans     = [OutputComponents]float64{1.0, 4.0, 16.0}
	AppointmentVariances = [OutputComponents]float64{1.0, 4.0, 32.0}
)

// OutputComponents is the length of the model's raw output vector.
const OutputComponents = 3

// TransformOutput maps one raw model output vector (each entry in roughly
// [-1, 1] from the model's final squashing activation) to a scalar annual
// appointment estimate: shift and scale each component, then sum.
func TransformOutput(raw []float64) float64 {
	estimate := 0.0
	for j := 0; j < OutputComponents; j++ {
		estimate += raw[j]*AppointmentVariances[j] + AppointmentMeans[j]
	}
	return estimate
}

// TransformGradient returns d(estimate)/d(raw_j): the transform is affine, so
// the gradient of anything through it just picks up the component variances.
func TransformGradient(j int) float64 {
	return AppointmentVariances[j]
}
