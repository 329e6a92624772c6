package connector

import (
	"context"
	"fmt"

	"github.com/amsen20/leovnf/internal/model"
	v1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/fields"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

const (
	mebibyte = 1 << 20
	gibibyte = 1 << 30
)

// KubeResourceProvider reads node resources from a Kubernetes cluster whose
// nodes are the satellites' compute hosts.
type KubeResourceProvider struct {
	// Kubernetes official library client for
	// contacting API-server.
	clientset kubernetes.Interface

	// Satellite ids are stored in this node label.
	nodeLabel string
}

func NewKubeResourceProvider(kubeconfig string, nodeLabel string) (*KubeResourceProvider, error) {
	var config *rest.Config
	var err error
	if kubeconfig == "" {
		config, err = rest.InClusterConfig()
	} else {
		config, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	}
	if err != nil {
		log.Err(err).Send()

		return nil, fmt.Errorf("can't connect to kubernetes cluster: %w", err)
	}

	clientSet, err := kubernetes.NewForConfig(config)
	if err != nil {
		log.Err(err).Send()

		return nil, fmt.Errorf("could not init clients: %w", err)
	}

	return NewKubeResourceProviderForClient(clientSet, nodeLabel), nil
}

func NewKubeResourceProviderForClient(clientset kubernetes.Interface, nodeLabel string) *KubeResourceProvider {
	return &KubeResourceProvider{
		clientset: clientset,
		nodeLabel: nodeLabel,
	}
}

func (kc *KubeResourceProvider) Query(ctx context.Context, node string) (model.ResourceSnapshot, error) {
	kubeNode, err := kc.findNode(ctx, node)
	if err != nil {
		return model.ResourceSnapshot{}, err
	}

	// every pod bound to the node, in all namespaces
	podList, err := kc.clientset.CoreV1().Pods("").List(ctx, metav1.ListOptions{
		FieldSelector: fields.OneTermEqualSelector("spec.nodeName", kubeNode.Name).String(),
	})
	if err != nil {
		log.Err(err).Send()

		return model.ResourceSnapshot{}, fmt.Errorf("%w: could not list pods of %s: %v", ErrUnknown, kubeNode.Name, err)
	}

	usedNow := model.ResourceVector{}
	usedMax := model.ResourceVector{}
	for _, pod := range podList.Items {
		if pod.Spec.NodeName != kubeNode.Name {
			continue
		}
		if pod.Status.Phase == v1.PodSucceeded || pod.Status.Phase == v1.PodFailed {
			continue
		}

		for _, container := range pod.Spec.Containers {
			usedNow = usedNow.Add(toResourceVector(container.Resources.Requests))
			usedMax = usedMax.Add(toResourceVector(container.Resources.Limits))
		}
	}

	total := toResourceVector(kubeNode.Status.Allocatable)
	if total.CPU <= 0 || total.MemoryMB <= 0 || total.DiskGB <= 0 {
		return model.ResourceSnapshot{}, fmt.Errorf("%w: node %s reports non-positive allocatable resources (%v)", ErrUnknown, kubeNode.Name, total)
	}

	// limits are never below requests
	usedMax = maxVector(usedMax, usedNow)

	return model.ResourceSnapshot{
		Hostname: kubeNode.Name,
		Total:    total,
		UsedNow:  usedNow,
		UsedMax:  usedMax,
	}, nil
}

func (kc *KubeResourceProvider) findNode(ctx context.Context, node string) (*v1.Node, error) {
	selector := labels.SelectorFromSet(labels.Set{kc.nodeLabel: node})
	nodeList, err := kc.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{
		LabelSelector: selector.String(),
	})
	if err != nil {
		log.Err(err).Send()

		return nil, fmt.Errorf("%w: could not list nodes: %v", ErrUnknown, err)
	}

	var found *v1.Node
	for i := range nodeList.Items {
		kubeNode := &nodeList.Items[i]
		if kubeNode.GetObjectMeta().GetLabels()[kc.nodeLabel] != node {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%w: multiple kubernetes nodes carry %s=%s", ErrUnknown, kc.nodeLabel, node)
		}
		found = kubeNode
	}

	if found == nil {
		return nil, fmt.Errorf("%w: no kubernetes node carries %s=%s", ErrUnknown, kc.nodeLabel, node)
	}

	return found, nil
}

func toResourceVector(list v1.ResourceList) model.ResourceVector {
	ret := model.ResourceVector{}
	if q, ok := list[v1.ResourceCPU]; ok {
		// whole cores, rounding up partial ones
		ret.CPU = (q.MilliValue() + 999) / 1000
	}
	if q, ok := list[v1.ResourceMemory]; ok {
		ret.MemoryMB = scaled(q, mebibyte)
	}
	if q, ok := list[v1.ResourceEphemeralStorage]; ok {
		ret.DiskGB = scaled(q, gibibyte)
	}

	return ret
}

func scaled(q resource.Quantity, unit int64) int64 {
	return q.Value() / unit
}

func maxVector(a, b model.ResourceVector) model.ResourceVector {
	ret := a
	if b.CPU > ret.CPU {
		ret.CPU = b.CPU
	}
	if b.MemoryMB > ret.MemoryMB {
		ret.MemoryMB = b.MemoryMB
	}
	if b.DiskGB > ret.DiskGB {
		ret.DiskGB = b.DiskGB
	}

	return ret
}
